package qr

import (
	"bytes"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRenderProducesPNG(t *testing.T) {
	png, err := Render("school-token", 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Errorf("output missing PNG signature, got % x", png[:8])
	}
}

func TestRenderRejectsEmptyPayload(t *testing.T) {
	if _, err := Render("", DefaultSize); err == nil {
		t.Error("empty payload accepted")
	}
}
