package tasks

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
)

// skipDirs are directories never descended into during repository walks.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"target":       true,
	"dist":         true,
}

// languageByExt maps file extensions to language labels.
var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".sh":   "shell",
	".md":   "markdown",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".sql":  "sql",
}

// Cartographer implements REPO_CARTOGRAPHER: it walks the repository and
// produces a structural map (file counts per language, total size, git
// branch and head commit).
type Cartographer struct{}

func (Cartographer) Name() string { return "REPO_CARTOGRAPHER" }

func (Cartographer) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	var (
		fileCount  int
		totalBytes int64
		languages  = map[string]int{}
		topDirs    []string
	)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are not fatal to discovery
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			if parent := filepath.Dir(path); parent == root && path != root {
				topDirs = append(topDirs, d.Name())
			}
			return nil
		}
		fileCount++
		if info, err := d.Info(); err == nil {
			totalBytes += info.Size()
		}
		if lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; ok {
			languages[lang]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"file_count":  fileCount,
		"total_bytes": totalBytes,
		"languages":   languages,
		"directories": topDirs,
	}

	// Git metadata is best-effort: plenty of analyzed trees are not repos.
	if branch, commit, ok := headInfo(root); ok {
		out["branch"] = branch
		out["commit"] = commit
	}

	return out, nil
}

func (Cartographer) Simulated() map[string]any {
	return map[string]any{
		"file_count":  128,
		"total_bytes": int64(1 << 20),
		"languages":   map[string]int{"go": 64, "markdown": 12},
		"directories": []string{"cmd", "internal"},
		"branch":      "main",
		"simulated":   true,
	}
}

// headInfo reads the current branch and head commit via go-git.
func headInfo(root string) (branch, commit string, ok bool) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", "", false
	}
	head, err := repo.Head()
	if err != nil {
		return "", "", false
	}
	branch = head.Name().Short()
	if !head.Name().IsBranch() {
		branch = "detached"
	}
	return branch, head.Hash().String(), true
}
