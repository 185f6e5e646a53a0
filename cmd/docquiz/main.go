package main

import (
	"os"

	"github.com/dgallion1/docquiz/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
