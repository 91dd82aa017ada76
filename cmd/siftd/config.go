package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
	"github.com/kgruel/siftd-sub000/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config {get|set|path} [key] [value]",
	GroupID: "setup",
	Short:   "Read or write the enumerated config surface",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "path":
			p, err := api.Path("config")
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Println(p)
		case "get":
			if len(args) != 2 {
				fatalf("config get requires a key")
			}
			if !config.IsKnownKey(args[1]) {
				fatalf("unknown config key %q", args[1])
			}
			if jsonOutput {
				printJSON(map[string]any{args[1]: config.Get(args[1])})
				return
			}
			fmt.Println(config.Get(args[1]))
		case "set":
			if len(args) != 3 {
				fatalf("config set requires a key and a value")
			}
			if !config.IsKnownKey(args[1]) {
				fatalf("unknown config key %q", args[1])
			}
			config.Set(args[1], args[2])
			if err := config.Persist(); err != nil {
				fatalf("writing config: %v", err)
			}
			if !jsonOutput {
				fmt.Printf("%s = %s\n", args[1], args[2])
			}
		default:
			fatalf("unknown config subcommand %q, want \"get\", \"set\", or \"path\"", args[0])
		}
	},
}

func init() { rootCmd.AddCommand(configCmd) }
