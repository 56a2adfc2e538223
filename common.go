// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Reusable parts of vqcheck application and subcommand infrastructure.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Exit codes distinguish failure categories, see AppError.
const (
	exitCodeUsageError     = 2
	exitCodeExecutionError = 3
	exitCodeParseError     = 4
)

// Commander interface should be implemented by commands and sub-commands.
type Commander interface {
	Run([]string) error
	Name() string
	Help()
}

// AppError a custom error returned from CLI application.
//
// AppError is handy error type envisioned to be used in CLI's main.
// ExitCode() should be used as argument for os.Exit().
type AppError struct {
	msg      string
	exitCode int
}

// Error implements error interface for AppError.
func (e *AppError) Error() string {
	return e.msg
}

// ExitCode returns CLI application's exit code.
func (e *AppError) ExitCode() int {
	return e.exitCode
}

// printSubCommandUsage helper to format ad print subcommand's usage.
func printSubCommandUsage(longHelp string, fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage of sub-command %s:\n\n", fs.Name())
	fmt.Fprintf(fs.Output(), "%s\n\n", longHelp)
	fs.PrintDefaults()
}

// fileExists will check if given file exists.
func fileExists(p string) bool {
	if p == "" {
		return false
	}
	fi, err := os.Stat(p)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}

// parseFraction parses ffprobe fraction strings like "25/1" into a float.
func parseFraction(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		return strconv.ParseFloat(s, 64)
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parseFraction() numerator: %w", err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parseFraction() denominator: %w", err)
	}
	if d == 0 {
		return 0, fmt.Errorf("parseFraction() zero denominator in %q", s)
	}

	return n / d, nil
}
