// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Main entrypoint for vqcheck application

package main

import (
	"fmt"
	"os"

	"github.com/evolution-gaming/vqcheck/internal/logging"
)

// root represents top level of vqcheck command, including dispatching to subcommands.
func root(args []string) error {
	usage := `Vqcheck - video quality measurement tool

Usage:

    vqcheck <command> [arguments] [-h|-help]

The commands are:

    run         measure quality of distorted video file(s) against a reference
    probe       print video stream metadata for given video file
    vqmplot     create plot for given metric from per-frame CSV report
    dump-conf   output actual application configuration
    version     print vqcheck version and exit

Use "vqcheck <command> -h|-help" for more information about command.`

	if len(args) < 1 {
		fmt.Println(usage)
		return &AppError{msg: "please, specify command", exitCode: exitCodeUsageError}
	}

	switch args[0] {
	case "run":
		return CreateRunCommand().Run(args[1:])
	case "probe":
		return CreateProbeCommand().Run(args[1:])
	case "vqmplot":
		return CreateVQMPlotCommand().Run(args[1:])
	case "dump-conf", "dump":
		return CreateDumpConfCommand().Run(args[1:])
	case "version":
		printVersion()
		return nil
	case "-h", "-help", "--help", "?":
		fmt.Println(usage)
		return &AppError{
			exitCode: exitCodeUsageError,
		}
	default:
		// No commands were matched at this point, so bail out with default usage message.
		fmt.Println(usage)
		return &AppError{
			msg:      "unknown command/flag",
			exitCode: exitCodeUsageError,
		}
	}
}

func main() {
	// Enable info logger by default and early enough.
	logging.EnableInfoLogger()

	if err := root(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		switch e := err.(type) {
		case *AppError:
			os.Exit(e.ExitCode())
		default:
			os.Exit(1)
		}
	}
	os.Exit(0)
}
