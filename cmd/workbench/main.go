// cmd/workbench/main.go
//
// This is the entry point for the workbench CLI. Running `workbench` with no
// subcommand opens the readiness board for the current directory.

package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
