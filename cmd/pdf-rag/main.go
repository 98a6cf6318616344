package main

import (
	"fmt"
	"os"

	"github.com/mfenderov/pdf-rag/cmd/pdf-rag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
