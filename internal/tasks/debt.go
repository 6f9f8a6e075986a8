package tasks

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// debtMarkers are source comment markers counted as technical debt signals.
var debtMarkers = []string{"TODO", "FIXME", "HACK", "XXX"}

// sourceExts limits debt scanning to source files.
var sourceExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".rs": true, ".java": true, ".rb": true, ".c": true, ".h": true,
	".cpp": true, ".cs": true, ".sh": true,
}

// DebtAssessor implements DEBT_ASSESSOR: it counts debt markers across
// source files and surfaces the most marked files.
type DebtAssessor struct{}

func (DebtAssessor) Name() string { return "DEBT_ASSESSOR" }

func (DebtAssessor) Run(ctx context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	byMarker := map[string]int{}
	byFile := map[string]int{}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		if !sourceExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()

		rel, _ := filepath.Rel(root, path)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			for _, marker := range debtMarkers {
				if strings.Contains(line, marker) {
					byMarker[marker]++
					byFile[rel]++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byMarker {
		total += n
	}

	return map[string]any{
		"total_markers": total,
		"by_marker":     byMarker,
		"by_file":       byFile,
	}, nil
}

func (DebtAssessor) Simulated() map[string]any {
	return map[string]any{
		"total_markers": 7,
		"by_marker":     map[string]int{"TODO": 5, "FIXME": 2},
		"by_file":       map[string]int{"internal/server/server.go": 4},
		"simulated":     true,
	}
}
