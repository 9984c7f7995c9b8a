package main

import (
	"fmt"
	"os"

	"github.com/docugen/docugen/cmd/docugen/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
