// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ManuGH/nfoscan/internal/config"
	"github.com/ManuGH/nfoscan/internal/validate"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return exitUsage
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return exitUsage
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nfoscan config validate [--config|-c config.yaml]")
}

// runConfigValidate loads and validates the configuration, printing "ok" or
// one line per problem.
func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	path, err := parseConfigFlag("nfoscan config validate", args, stderr)
	if err != nil {
		return exitUsage
	}

	if _, err := config.NewLoader(path, version).Load(); err != nil {
		var verr validate.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors() {
				fmt.Fprintf(stderr, "  %s\n", e.Error())
			}
		} else {
			fmt.Fprintf(stderr, "  %v\n", err)
		}
		return exitFail
	}

	fmt.Fprintln(stdout, "ok")
	return exitOK
}
