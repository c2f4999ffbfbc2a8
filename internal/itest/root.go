//go:build integration

package itest

import (
	"errors"
	"os"
	"path/filepath"
)

// findRepoRoot walks up from the working directory to the module root, the
// first directory holding both go.mod and cmd/hlfinish. HLFINISH_REPO_ROOT
// short-circuits the search.
func findRepoRoot() (string, error) {
	if dir := os.Getenv("HLFINISH_REPO_ROOT"); dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if isRepoRoot(wd) {
			return wd, nil
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", errors.New("could not locate go.mod next to cmd/hlfinish")
		}
		wd = parent
	}
}

func isRepoRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err != nil {
		return false
	}
	st, err := os.Stat(filepath.Join(dir, "cmd", "hlfinish"))
	return err == nil && st.IsDir()
}
