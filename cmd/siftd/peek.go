package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
)

var peekCmd = &cobra.Command{
	Use:     "peek [<id>]",
	GroupID: "search",
	Short:   "Render a conversation as a readable transcript",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		if len(args) == 0 {
			fatalf("peek requires a conversation id")
		}

		view, err := c.Query(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatConversation(os.Stdout, view); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() { rootCmd.AddCommand(peekCmd) }
