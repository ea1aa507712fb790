// Command stcompress reconstructs sampled stack traces from their
// compressed 64-bit hashes, using a call graph recovered from a binary or
// its disassembly dump as the search space.
package main

import (
	"os"

	"github.com/maxgio92/stcompress/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
