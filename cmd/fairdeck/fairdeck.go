package main

import (
	"fmt"
	"os"

	fairdeck "github.com/fairdeck/fairdeck/cmd/fairdeck-cli"
)

func main() {
	app := fairdeck.CLI()
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("%+v\n", err)
		if code, ok := fairdeck.ExitCode(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
