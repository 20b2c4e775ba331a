package main

import (
	"os"

	"github.com/Kruthik-JP/guard-rail-NER/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
