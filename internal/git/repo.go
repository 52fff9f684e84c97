package git

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GetRepoRoot returns the root directory of the git repository containing dir.
func GetRepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository")
	}

	return filepath.Clean(strings.TrimSpace(string(output))), nil
}

// ProjectRoot picks the project root. An explicit dir is used as given,
// made absolute. An empty dir means the enclosing git repository of the
// working directory, or the working directory itself outside one.
func ProjectRoot(dir string) (string, error) {
	if dir != "" {
		return filepath.Abs(dir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := GetRepoRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}
