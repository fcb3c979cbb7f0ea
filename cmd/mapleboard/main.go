package main

import (
	"fmt"
	"os"

	"mapleboard/internal/command"
)

func main() {
	if err := command.BuildApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
