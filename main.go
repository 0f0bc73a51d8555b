package main

import (
	"os"

	"github.com/nsxbet/cypher-guard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
