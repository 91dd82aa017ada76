// Command siftd aggregates AI coding-assistant conversation logs into
// a single queryable corpus: ingest per-harness logs, index them for
// hybrid keyword+vector search, and query/tag/export the result. Each
// verb lives in its own file; this file only wires rootCmd.Execute.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
