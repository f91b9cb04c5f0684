package main

import (
	"go.uber.org/fx"

	"github.com/abasto-labs/abasto/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
