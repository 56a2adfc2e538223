// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Two-level application logging on top of standard library "log" package.
// Loggers start out disabled and have to be enabled explicitly, usually
// from main or from a -debug flag handler.
package logging

import (
	"fmt"
	"io"
	"log"
)

const (
	infoPrefix  = "INFO: "
	debugPrefix = "DEBUG: "
	calldepth   = 2
)

var (
	defaultOutput io.Writer = log.Default().Writer()
	infoFlags               = log.Ldate | log.Ltime
	debugFlags              = log.Ldate | log.Ltime | log.Lshortfile
	// Both loggers discard output until enabled via Enable*Logger().
	InfoLogger  = log.New(io.Discard, infoPrefix, infoFlags)
	DebugLogger = log.New(io.Discard, debugPrefix, debugFlags)
)

// EnableInfoLogger turns on output for the Info level logger.
func EnableInfoLogger() {
	InfoLogger.SetOutput(defaultOutput)
}

// EnableDebugLogger turns on output for the Debug level logger.
func EnableDebugLogger() {
	DebugLogger.SetOutput(defaultOutput)
}

func Info(v ...interface{}) {
	InfoLogger.Output(calldepth, fmt.Sprint(v...))
}

func Infof(format string, v ...interface{}) {
	InfoLogger.Output(calldepth, fmt.Sprintf(format, v...))
}

func Debug(v ...interface{}) {
	DebugLogger.Output(calldepth, fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) {
	DebugLogger.Output(calldepth, fmt.Sprintf(format, v...))
}
