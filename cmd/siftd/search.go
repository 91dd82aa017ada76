package main

import (
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
	"github.com/kgruel/siftd-sub000/internal/retrieval"
)

var (
	searchWorkspace   string
	searchModel       string
	searchSince       string
	searchBefore      string
	searchTagsAny     []string
	searchTagsAll     []string
	searchTagsNone    []string
	searchRole        string
	searchMode        string
	searchLimit       int
	searchRecall      int
	searchThreshold   float64
	searchLambda      float64
	searchSemantic    bool
	searchNoDiversity bool
	searchActive      bool
	searchDerivative  bool
)

var searchCmd = &cobra.Command{
	Use:     "search [query...]",
	GroupID: "search",
	Short:   "Hybrid keyword + vector search over the corpus",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		opts := retrieval.Options{
			Query:             strings.Join(args, " "),
			Workspace:         searchWorkspace,
			Model:             searchModel,
			Since:             resolveWhen(searchSince),
			Before:            resolveWhen(searchBefore),
			TagsAny:           searchTagsAny,
			TagsAll:           searchTagsAll,
			TagsNone:          searchTagsNone,
			IncludeActive:     searchActive,
			IncludeDerivative: searchDerivative,
			Role:              retrieval.Role(searchRole),
			Semantic:          searchSemantic,
			NoDiversity:       searchNoDiversity,
			MMRLambda:         searchLambda,
			Threshold:         searchThreshold,
			Mode:              retrieval.Mode(searchMode),
			Limit:             searchLimit,
			RecallLimit:       searchRecall,
		}
		out, err := c.Search(rootCtx, opts)
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatSearch(os.Stdout, out); err != nil {
			fatalf("%v", err)
		}
	},
}

// resolveWhen accepts either an ISO date or a natural-language phrase
// ("3 days ago", "last monday") for --since/--before, parsed with the
// same when.New/en.All/common.All wiring the library's own README
// shows, so a user doesn't have to compute an exact date by hand.
func resolveWhen(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return s
	}
	return r.Time.Format("2006-01-02")
}

func init() {
	searchCmd.Flags().StringVar(&searchWorkspace, "workspace", "", "filter by workspace path substring")
	searchCmd.Flags().StringVar(&searchModel, "model", "", "filter by model name substring")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "ISO date or natural-language phrase, inclusive")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "ISO date or natural-language phrase, exclusive")
	searchCmd.Flags().StringSliceVarP(&searchTagsAny, "tag", "l", nil, "match any of these tags (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchTagsAll, "all-tags", nil, "match all of these tags")
	searchCmd.Flags().StringSliceVar(&searchTagsNone, "no-tag", nil, "exclude these tags")
	searchCmd.Flags().StringVar(&searchRole, "role", "", "restrict to \"user\" or \"assistant\" content")
	searchCmd.Flags().StringVar(&searchMode, "mode", "default", "default|first|conversations|thread|context|full")
	searchCmd.Flags().IntVar(&searchLimit, "limit", retrieval.DefaultLimit, "result limit (0 = all)")
	searchCmd.Flags().IntVar(&searchRecall, "recall", 0, "Stage B FTS recall limit (0 = default)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "minimum Stage F score")
	searchCmd.Flags().Float64Var(&searchLambda, "lambda", retrieval.DefaultMMRLambda, "Stage E MMR diversity lambda")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "skip FTS recall, go straight to vector search")
	searchCmd.Flags().BoolVar(&searchNoDiversity, "no-diversity", false, "skip MMR reranking")
	searchCmd.Flags().BoolVar(&searchActive, "include-active", false, "include conversations still in an active live session")
	searchCmd.Flags().BoolVar(&searchDerivative, "include-derivative", false, "include conversations tagged siftd:derivative")
	rootCmd.AddCommand(searchCmd)
}
