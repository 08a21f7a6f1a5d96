// Command ask answers catalog questions from the terminal, either in-process
// or against a running assistant service.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
