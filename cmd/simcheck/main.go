// Command simcheck detects near-duplicate source code across a
// population of student submissions, following the CLI shell the
// teacher's cmd/omen wires around its own analyses: a cobra root
// command plus one subcommand per operation (here, compare.go's
// `compare`).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
