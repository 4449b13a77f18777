package main

import (
	"fmt"
	"os"

	"interview-intel/cmd/interview-intel/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
