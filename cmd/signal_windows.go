//go:build windows

package cmd

import "os"

// shutdownSignals returns the OS signals that end long-running commands.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
