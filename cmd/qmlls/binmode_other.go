//go:build !windows

package main

// setStdioBinaryMode is a no-op on platforms whose standard streams are
// always binary-clean.
func setStdioBinaryMode() {}
