package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	tagSession       bool
	tagExchangeIndex int
)

var tagCmd = &cobra.Command{
	Use:     "tag {add|remove} <entity-type> <entity-id> <tag>",
	GroupID: "tagging",
	Short:   "Attach or remove a tag on a conversation/workspace/tool-call/prompt",
	Args:    cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		action, entityType, entityID, tagName := args[0], args[1], args[2], args[3]

		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		if tagSession {
			if action != "add" {
				fatalf("--session only supports \"tag add\"")
			}
			var idx *int
			if cmd.Flags().Changed("exchange") {
				idx = &tagExchangeIndex
			}
			wd, err := os.Getwd()
			if err != nil {
				fatalf("%v", err)
			}
			if err := c.QueueSessionTag(rootCtx, wd, tagName, entityType, idx); err != nil {
				fatalf("%v", err)
			}
			fmt.Println("queued")
			return
		}

		switch action {
		case "add":
			err = c.Tag(rootCtx, entityType, entityID, tagName)
		case "remove":
			err = c.Untag(rootCtx, entityType, entityID, tagName)
		default:
			fatalf("unknown tag action %q, want \"add\" or \"remove\"", action)
		}
		if err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	tagCmd.Flags().BoolVar(&tagSession, "session", false, "queue the tag against this workspace's live session instead of tagging directly")
	tagCmd.Flags().IntVar(&tagExchangeIndex, "exchange", 0, "restrict a queued session tag to one exchange index")
	rootCmd.AddCommand(tagCmd)
}
