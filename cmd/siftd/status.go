package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "search",
	Short:   "Show corpus size, index state, and top workspaces/tools",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		st, err := c.Status(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatStatus(os.Stdout, st); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() { rootCmd.AddCommand(statusCmd) }
