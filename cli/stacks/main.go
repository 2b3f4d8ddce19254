package main

import (
	"os"

	stackscmder "github.com/bookbinderco/stacks/cmd/stacks"
)

func main() {
	cmd := stackscmder.NewStacksCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
