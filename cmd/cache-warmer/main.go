package main

import (
	"os"

	"github.com/williampepple1/isr-cache-warmer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
