// Package workspace resolves workspace identity (spec.md §3.1, §5
// "Filesystem caching", testable scenario S6). Worktree and git-remote
// resolution are grounded on beads' internal/git/gitdir.go, which uses
// `git rev-parse --git-dir`/`--git-common-dir` to detect worktrees and
// locate the main repository root; this package reuses that shell-out
// strategy (spec.md treats git as a local tool, not something to
// reimplement) and adds the git-URL normalization spec.md §3.1 requires.
package workspace

import (
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// worktreeCache memoizes path -> main repo root for the process lifetime,
// matching spec.md §5's "memoized per process" requirement.
var worktreeCache sync.Map // map[string]string

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsWorktree reports whether path is inside a linked git worktree rather
// than the main checkout, by comparing --git-dir and --git-common-dir.
func IsWorktree(path string) bool {
	gitDir, err1 := gitOutput(path, "rev-parse", "--git-dir")
	commonDir, err2 := gitOutput(path, "rev-parse", "--git-common-dir")
	if err1 != nil || err2 != nil || gitDir == "" || commonDir == "" {
		return false
	}
	absGit, e1 := filepath.Abs(filepath.Join(path, gitDir))
	absCommon, e2 := filepath.Abs(filepath.Join(path, commonDir))
	if e1 != nil || e2 != nil {
		return false
	}
	return absGit != absCommon
}

// MainRepoRoot resolves path to the root of its main repository,
// following worktree links. Results are memoized per process.
func MainRepoRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if cached, ok := worktreeCache.Load(abs); ok {
		return cached.(string), nil
	}

	toplevel, err := gitOutput(abs, "rev-parse", "--show-toplevel")
	if err != nil {
		// Not a git repo at all; the path itself is the identity.
		worktreeCache.Store(abs, abs)
		return abs, nil
	}

	root := toplevel
	if IsWorktree(abs) {
		commonDir, err := gitOutput(abs, "rev-parse", "--git-common-dir")
		if err == nil && commonDir != "" {
			absCommon, err := filepath.Abs(filepath.Join(abs, commonDir))
			if err == nil {
				root = filepath.Dir(absCommon)
			}
		}
	}
	worktreeCache.Store(abs, root)
	return root, nil
}

// GitRemote returns the normalized origin remote for path, or "" if the
// path is not a git repository or has no "origin" remote.
func GitRemote(path string) string {
	url, err := gitOutput(path, "config", "--get", "remote.origin.url")
	if err != nil || url == "" {
		return ""
	}
	return NormalizeGitURL(url)
}

var (
	scpLike    = regexp.MustCompile(`^([\w.-]+@)?([\w.-]+):(.+)$`)
	schemeRE   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	credsRE    = regexp.MustCompile(`^[^/@]+@`)
	portRE     = regexp.MustCompile(`:\d+$`)
)

// NormalizeGitURL strips protocol/credentials/port/".git"/trailing
// slash and collapses the SCP-like "host:path" form into "host/path",
// so "git@github.com:u/r.git", "https://github.com/u/r.git", and
// "ssh://git@github.com:22/u/r" all normalize to "github.com/u/r".
func NormalizeGitURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if schemeRE.MatchString(s) {
		s = schemeRE.ReplaceAllString(s, "")
		if idx := strings.Index(s, "/"); idx >= 0 {
			hostPart := s[:idx]
			hostPart = credsRE.ReplaceAllString(hostPart, "")
			hostPart = portRE.ReplaceAllString(hostPart, "")
			s = hostPart + s[idx:]
		}
	} else if m := scpLike.FindStringSubmatch(s); m != nil && !strings.Contains(s, "/") {
		// bare "host:path" with no scheme and no slash before the colon
		s = m[2] + "/" + m[3]
	} else if m := scpLike.FindStringSubmatch(s); m != nil {
		host := m[2]
		pathPart := m[3]
		// Only collapse when this really looks like user@host:path, not
		// an absolute local path containing a drive-letter-style colon.
		if m[1] != "" {
			s = host + "/" + pathPart
		}
	}

	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimSuffix(s, "/")
	return s
}
