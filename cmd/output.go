package main

import (
	"fmt"
	"io"
	"os"

	"gptbrowse/browse"
)

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
)

var noColor bool

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := browse.Encode(v, true)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
