//go:build !windows

package main

// enableDPIAwareness is a no-op: other platforms report scaled geometry through the device pixel ratio.
func enableDPIAwareness() {}
