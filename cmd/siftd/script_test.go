package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// TestMain builds the siftd binary once per test run and prepends its
// directory to PATH, so the txtar scripts under testdata/ can invoke
// "siftd" as a subprocess the same way a user would from a shell,
// instead of driving cobra's Command tree in-process.
func TestMain(m *testing.M) {
	bin, cleanup, err := buildSiftd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()
	os.Setenv("PATH", filepath.Dir(bin)+string(os.PathListSeparator)+os.Getenv("PATH"))
	os.Exit(m.Run())
}

func buildSiftd() (string, func(), error) {
	dir, err := os.MkdirTemp("", "siftd-script-test")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	bin := filepath.Join(dir, "siftd")
	cmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("building siftd: %w\n%s", err, out)
	}
	return bin, cleanup, nil
}

// TestScripts runs every testdata/*.txtar transcript against the
// built binary: each file is its own subtest, asserting on stdout/
// stderr/exit status the way go's own cmd/go script tests do.
func TestScripts(t *testing.T) {
	engine := &script.Engine{
		Cmds:  script.DefaultCmds(),
		Conds: script.DefaultConds(),
	}
	scripttest.Test(t, context.Background(), engine, os.Environ(), "testdata/*.txtar")
}
