package tasks

import (
	"errors"
	"fmt"
	"os"
)

// ErrNoRepositoryRoot indicates a task input without a usable repository root.
var ErrNoRepositoryRoot = errors.New("input has no repository_root")

// repoRoot extracts and verifies the repository root from a task input.
func repoRoot(input map[string]any) (string, error) {
	v, ok := input["repository_root"]
	if !ok {
		return "", ErrNoRepositoryRoot
	}
	root, ok := v.(string)
	if !ok || root == "" {
		return "", fmt.Errorf("%w: got %T", ErrNoRepositoryRoot, v)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return "", fmt.Errorf("repository root %s is not a directory", root)
	}
	return root, nil
}

// upstream returns a prior step's output payload from the input map, or nil
// when the key was omitted during input resolution.
func upstream(input map[string]any, key string) map[string]any {
	if v, ok := input[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
