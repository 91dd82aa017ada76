package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgruel/siftd-sub000/internal/store"
)

func TestWindowsPassthroughShortConversation(t *testing.T) {
	exchanges := []store.Exchange{
		{PromptID: "p1", PromptText: "hi", ResponseText: "hello there"},
	}
	windows := Windows(exchanges, DefaultOptions)
	require.Len(t, windows, 1)
	require.Contains(t, windows[0].Text, "hi")
	require.Contains(t, windows[0].Text, "hello there")
	require.Equal(t, []string{"p1"}, windows[0].SourceIDs)
}

func TestWindowsGroupsUntilTarget(t *testing.T) {
	word := "token "
	var exchanges []store.Exchange
	for i := 0; i < 5; i++ {
		exchanges = append(exchanges, store.Exchange{
			PromptID:     string(rune('a' + i)),
			PromptText:   strings.Repeat(word, 30),
			ResponseText: strings.Repeat(word, 30),
		})
	}
	windows := Windows(exchanges, DefaultOptions)
	require.NotEmpty(t, windows)
	for _, w := range windows {
		require.LessOrEqual(t, w.TokenLen, DefaultOptions.MaxTokens)
	}
}

func TestWindowsSpansMultipleExchanges(t *testing.T) {
	exchanges := []store.Exchange{
		{PromptID: "p1", PromptText: "short one"},
		{PromptID: "p2", PromptText: "short two"},
	}
	windows := Windows(exchanges, Options{TargetTokens: 1000, MaxTokens: 2000, OverlapTokens: 5})
	require.Len(t, windows, 1)
	require.Equal(t, []string{"p1", "p2"}, windows[0].SourceIDs)
}
