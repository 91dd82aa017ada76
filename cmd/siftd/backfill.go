package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
)

var backfillCmd = &cobra.Command{
	Use:     "backfill [operation]",
	GroupID: "maint",
	Short:   "Re-derive data the store didn't capture at ingest time",
	Long:    "Without an argument, runs every operation: " + joinOps(),
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		ops := api.BackfillOperations()
		if len(args) == 1 {
			ops = []string{args[0]}
		}
		for _, op := range ops {
			result, err := c.Backfill(rootCtx, op)
			if err != nil {
				fatalf("%v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"operation": op, "scanned": result.Scanned, "updated": result.Updated})
				continue
			}
			fmt.Printf("%-24s scanned=%-6d updated=%d\n", op, result.Scanned, result.Updated)
		}
	},
}

func joinOps() string {
	ops := api.BackfillOperations()
	out := ops[0]
	for _, op := range ops[1:] {
		out += ", " + op
	}
	return out
}

func init() { rootCmd.AddCommand(backfillCmd) }
