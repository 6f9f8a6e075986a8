package tasks

import (
	"context"
	"sort"
)

// reportSections are the upstream keys the composer folds into its report,
// matching the output keys the chain templates wire into its input mapping.
var reportSections = []string{"discovery", "stackmap", "health", "security", "dependencies", "debt"}

// ReportComposer implements REPORT_COMPOSER: it folds whatever upstream
// sections its input mapping delivered into one summary payload. Missing
// sections are simply absent; input resolution drops unknown keys by design.
type ReportComposer struct{}

func (ReportComposer) Name() string { return "REPORT_COMPOSER" }

func (ReportComposer) Run(_ context.Context, input map[string]any) (map[string]any, error) {
	sections := map[string]any{}
	var present []string

	for _, key := range reportSections {
		if section := upstream(input, key); section != nil {
			sections[key] = section
			present = append(present, key)
		}
	}
	sort.Strings(present)

	return map[string]any{
		"sections":      sections,
		"section_names": present,
		"section_count": len(present),
	}, nil
}

func (ReportComposer) Simulated() map[string]any {
	return map[string]any{
		"sections":      map[string]any{"discovery": map[string]any{"file_count": 128}},
		"section_names": []string{"discovery"},
		"section_count": 1,
		"simulated":     true,
	}
}
