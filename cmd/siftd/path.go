package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
)

var pathCmd = &cobra.Command{
	Use:     "path {db|embeddings-db|config|data|state}",
	GroupID: "setup",
	Short:   "Print a resolved on-disk location",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p, err := api.Path(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(p)
	},
}

func init() { rootCmd.AddCommand(pathCmd) }
