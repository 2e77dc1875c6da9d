// Command strata checks out layered build configurations: it expands
// cross-repository includes, merges the configuration left to right and
// keeps floating repositories pinned through lockfiles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
