// Package main provides the entry point for MAUSim.
// MAUSim runs packet headers through the match-action units of a pipe.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
