package tasks

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// HealthInspector implements HEALTH_INSPECTOR: repository hygiene signals
// (readme, license, tests, CI configuration).
type HealthInspector struct{}

func (HealthInspector) Name() string { return "HEALTH_INSPECTOR" }

func (HealthInspector) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	checks := map[string]bool{
		"readme":  fileExistsAny(root, "README.md", "README", "README.rst"),
		"license": fileExistsAny(root, "LICENSE", "LICENSE.md", "LICENSE.txt", "COPYING"),
		"ci":      fileExistsAny(root, ".github/workflows", ".gitlab-ci.yml", ".circleci"),
	}

	testFiles := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, "_test.go") ||
			strings.HasPrefix(name, "test_") ||
			strings.HasSuffix(name, ".spec.js") ||
			strings.HasSuffix(name, ".test.ts") {
			testFiles++
		}
		return nil
	})
	checks["tests"] = testFiles > 0

	score := 0
	for _, ok := range checks {
		if ok {
			score++
		}
	}

	return map[string]any{
		"checks":     checks,
		"test_files": testFiles,
		"score":      score,
		"max_score":  len(checks),
	}, nil
}

func (HealthInspector) Simulated() map[string]any {
	return map[string]any{
		"checks":     map[string]bool{"readme": true, "license": true, "ci": false, "tests": true},
		"test_files": 9,
		"score":      3,
		"max_score":  4,
		"simulated":  true,
	}
}

func fileExistsAny(root string, names ...string) bool {
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return true
		}
	}
	return false
}
