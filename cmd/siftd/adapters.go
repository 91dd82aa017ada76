package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
)

var adaptersCmd = &cobra.Command{
	Use:     "adapters",
	GroupID: "setup",
	Short:   "List registered harness adapters and where each came from",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		for _, w := range c.Registry.Warnings() {
			if !jsonOutput {
				os.Stderr.WriteString("warning: " + w + "\n")
			}
		}
		if err := output.Get(formatterName()).FormatAdapters(os.Stdout, c.Adapters()); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() { rootCmd.AddCommand(adaptersCmd) }
