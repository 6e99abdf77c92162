package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"sonaris/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// renderPreflight writes one line per check result, coloring pass/fail when
// the writer is a terminal.
func renderPreflight(out io.Writer, results []preflight.Result) {
	colorize := shouldColorize(out)
	for _, r := range results {
		label := "FAIL"
		color := ansiRed
		if r.Passed {
			label = "OK"
			color = ansiGreen
		}
		line := fmt.Sprintf("  %-4s %s: %s", label, r.Name, r.Detail)
		if colorize {
			line = color + line + ansiReset
		}
		fmt.Fprintln(out, line)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
