package main

import (
	"log"

	"github.com/fatih/color"
)

// cliLogger implements designaudit.Logger with colored terminal output.
type cliLogger struct{}

func (l *cliLogger) Infof(format string, args ...any) {
	color.New(color.FgYellow).Printf(format+"\n", args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	color.New(color.FgYellow).Printf("⚠ "+format+"\n", args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	color.New(color.FgRed).Printf("✗ "+format+"\n", args...)
}

// serverLogger writes service-level lines to the standard logger, next to
// the request logs.
type serverLogger struct{}

func (serverLogger) Infof(format string, args ...any) {
	log.Printf("[info] "+format, args...)
}

func (serverLogger) Warnf(format string, args ...any) {
	log.Printf("[warn] "+format, args...)
}

func (serverLogger) Errorf(format string, args ...any) {
	log.Printf("[error] "+format, args...)
}
