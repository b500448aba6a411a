//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// setStdioBinaryMode reads the console mode of stdin and stdout and writes
// the same mode back; it changes no stream setting. Handles that are not
// consoles (pipes, files) fail GetConsoleMode and are skipped. Go's os
// package reads and writes these handles without CRLF translation, so the
// Content-Length-framed transport's byte counts are unaffected either way.
func setStdioBinaryMode() {
	for _, fd := range []windows.Handle{
		windows.Handle(os.Stdin.Fd()),
		windows.Handle(os.Stdout.Fd()),
	} {
		var mode uint32
		if err := windows.GetConsoleMode(fd, &mode); err != nil {
			continue
		}

		_ = windows.SetConsoleMode(fd, mode)
	}
}
