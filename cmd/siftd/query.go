package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/api"
	"github.com/kgruel/siftd-sub000/internal/output"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

var queryCmd = &cobra.Command{
	Use:     "query <id>|sql <name>",
	GroupID: "search",
	Short:   "Show one conversation, or run a saved query",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		if args[0] == "sql" {
			if len(args) < 2 {
				fatalf("query sql requires a saved query name")
			}
			out, err := runSavedQuery(c, args[1])
			if err != nil {
				fatalf("%v", err)
			}
			if err := output.Get(formatterName()).FormatSearch(os.Stdout, out); err != nil {
				fatalf("%v", err)
			}
			return
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

func init() { rootCmd.AddCommand(queryCmd) }

func runSavedQuery(c *api.Client, name string) (*retrieval.Output, error) {
	q, err := api.LoadSavedQuery(name)
	if err != nil {
		return nil, err
	}
	return c.Search(rootCtx, retrieval.Options{Query: q.Query, Mode: retrieval.Mode(q.Mode), Limit: q.Limit})
}
