package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// DocScribe implements DOC_SCRIBE: it drafts a markdown overview of the
// repository from the discovery and stackmap outputs.
type DocScribe struct{}

func (DocScribe) Name() string { return "DOC_SCRIBE" }

func (DocScribe) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(root))

	if discovery := upstream(input, "discovery"); discovery != nil {
		if n, ok := discovery["file_count"]; ok {
			fmt.Fprintf(&b, "The repository contains %v files.\n\n", n)
		}
		if branch, ok := discovery["branch"]; ok {
			fmt.Fprintf(&b, "Current branch: `%v`.\n\n", branch)
		}
	}

	if stackmap := upstream(input, "stackmap"); stackmap != nil {
		if stacks, ok := stackmap["stacks"].([]string); ok && len(stacks) > 0 {
			fmt.Fprintf(&b, "## Stack\n\n")
			for _, s := range stacks {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
	}

	doc := b.String()
	return map[string]any{
		"document":   doc,
		"word_count": len(strings.Fields(doc)),
	}, nil
}

func (DocScribe) Simulated() map[string]any {
	return map[string]any{
		"document":   "# example\n\nThe repository contains 128 files.\n",
		"word_count": 6,
		"simulated":  true,
	}
}
