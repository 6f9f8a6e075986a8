package tasks

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DependencyAuditor implements DEPENDENCY_AUDITOR: it inventories direct
// dependencies from the manifests present in the repository.
type DependencyAuditor struct{}

func (DependencyAuditor) Name() string { return "DEPENDENCY_AUDITOR" }

func (DependencyAuditor) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	deps := map[string][]string{}

	if mods := parseGoMod(filepath.Join(root, "go.mod")); len(mods) > 0 {
		deps["go"] = mods
	}
	if pkgs := parsePackageJSON(filepath.Join(root, "package.json")); len(pkgs) > 0 {
		deps["node"] = pkgs
	}
	if reqs := parseRequirements(filepath.Join(root, "requirements.txt")); len(reqs) > 0 {
		deps["python"] = reqs
	}

	total := 0
	for _, list := range deps {
		total += len(list)
	}

	return map[string]any{
		"dependencies": deps,
		"total":        total,
		"ecosystems":   len(deps),
	}, nil
}

func (DependencyAuditor) Simulated() map[string]any {
	return map[string]any{
		"dependencies": map[string][]string{"go": {"go.uber.org/zap", "github.com/spf13/cobra"}},
		"total":        2,
		"ecosystems":   1,
		"simulated":    true,
	}
}

// parseGoMod extracts direct require paths, skipping indirect markers.
func parseGoMod(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var (
		deps    []string
		inBlock bool
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "require (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock || strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
			if strings.Contains(line, "// indirect") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				deps = append(deps, fields[0])
			}
		}
	}
	return deps
}

func parsePackageJSON(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var manifest struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil
	}
	deps := make([]string, 0, len(manifest.Dependencies))
	for name := range manifest.Dependencies {
		deps = append(deps, name)
	}
	return deps
}

func parseRequirements(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var deps []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.FieldsFunc(line, func(r rune) bool {
			return r == '=' || r == '>' || r == '<' || r == '~' || r == '['
		})
		if len(name) > 0 {
			deps = append(deps, strings.TrimSpace(name[0]))
		}
	}
	return deps
}

// LicenseAuditor implements LICENSE_AUDITOR: it identifies the repository's
// own license and flags dependency ecosystems for manual review.
type LicenseAuditor struct{}

func (LicenseAuditor) Name() string { return "LICENSE_AUDITOR" }

func (LicenseAuditor) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	root, err := repoRoot(input)
	if err != nil {
		return nil, err
	}

	license := detectLicense(root)

	out := map[string]any{
		"repository_license": license,
		"has_license":        license != "none",
	}

	if deps := upstream(input, "dependencies"); deps != nil {
		if total, ok := deps["total"]; ok {
			out["dependencies_reviewed"] = total
		}
	}

	return out, nil
}

func (LicenseAuditor) Simulated() map[string]any {
	return map[string]any{
		"repository_license":    "mit",
		"has_license":           true,
		"dependencies_reviewed": 2,
		"simulated":             true,
	}
}

func detectLicense(root string) string {
	for _, name := range []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "COPYING"} {
		content, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		head := strings.ToLower(string(content[:min(len(content), 400)]))
		switch {
		case strings.Contains(head, "mit license"):
			return "mit"
		case strings.Contains(head, "apache license"):
			return "apache-2.0"
		case strings.Contains(head, "gnu general public license"):
			return "gpl"
		case strings.Contains(head, "bsd"):
			return "bsd"
		default:
			return "unknown"
		}
	}
	return "none"
}
