package main

import (
	"os"

	"github.com/abasto-labs/abasto/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
