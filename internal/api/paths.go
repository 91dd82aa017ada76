package api

import (
	"fmt"

	"github.com/kgruel/siftd-sub000/internal/paths"
)

// Path resolves one of `siftd path`'s named locations, so cmd/siftd
// never imports internal/paths directly.
func Path(kind string) (string, error) {
	switch kind {
	case "db":
		return paths.MainDBPath()
	case "embeddings-db":
		return paths.EmbeddingsDBPath()
	case "config":
		return paths.ConfigFilePath()
	case "data":
		return paths.DataDir()
	case "state":
		return paths.StateDir()
	case "adapters":
		return paths.DropInDir("adapters")
	case "queries":
		return paths.DropInDir("queries")
	default:
		return "", fmt.Errorf("unknown path kind %q", kind)
	}
}
