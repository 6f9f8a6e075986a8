package tasks

import (
	"context"
	"os"
	"path/filepath"
)

// manifestMarkers maps manifest files to the stack they indicate.
var manifestMarkers = map[string]string{
	"go.mod":           "go",
	"package.json":     "node",
	"requirements.txt": "python",
	"pyproject.toml":   "python",
	"Cargo.toml":       "rust",
	"pom.xml":          "java-maven",
	"build.gradle":     "java-gradle",
	"Gemfile":          "ruby",
	"Dockerfile":       "docker",
	"docker-compose.yml": "docker-compose",
	"Makefile":         "make",
}

// StackAnalyst implements STACK_ANALYST: it classifies the repository's
// technology stack from its manifests, refining the cartographer's language
// counts when present.
type StackAnalyst struct{}

func (StackAnalyst) Name() string { return "STACK_ANALYST" }

func (StackAnalyst) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	var stacks []string
	manifests := map[string]string{}
	for marker, stack := range manifestMarkers {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			stacks = append(stacks, stack)
			manifests[marker] = stack
		}
	}

	out := map[string]any{
		"stacks":    stacks,
		"manifests": manifests,
	}

	if discovery := upstream(input, "discovery"); discovery != nil {
		if langs, ok := discovery["languages"]; ok {
			out["languages"] = langs
		}
	}

	return out, nil
}

func (StackAnalyst) Simulated() map[string]any {
	return map[string]any{
		"stacks":    []string{"go"},
		"manifests": map[string]string{"go.mod": "go"},
		"simulated": true,
	}
}
