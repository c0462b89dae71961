package main

import (
	"errors"
	"fmt"
	"os"

	"library-catalog/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Reported() {
		fmt.Fprintf(os.Stderr, "library: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
