package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducesCorrectLengthAndPrefix(t *testing.T) {
	id := New("")
	require.Len(t, id, TotalLength)

	prefixed := New("conv")
	require.True(t, strings.HasPrefix(prefixed, "conv-"))
	require.Len(t, prefixed, len("conv-")+TotalLength)
}

func TestNewIsLexicographicallySortableByTime(t *testing.T) {
	old := clock
	defer func() { clock = old }()

	clock = func() time.Time { return time.UnixMilli(1_600_000_000_000) }
	earlier := New("")
	clock = func() time.Time { return time.UnixMilli(1_600_000_001_000) }
	later := New("")

	require.True(t, earlier[:10] < later[:10], "time prefix must sort earlier-before-later")
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := New("")
		require.False(t, seen[id], "collision at iteration %d", i)
		seen[id] = true
	}
}

func TestExternalIDFormat(t *testing.T) {
	require.Equal(t, "claudecode::sess-1::item-2", ExternalID("claudecode", "sess-1", "item-2"))
}
