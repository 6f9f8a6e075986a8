package tasks

import (
	"github.com/fathomlabs/chaind/internal/registry"
)

// Permission names used by the built-in agent definitions.
const (
	PermReadRepo    = "read_repo"
	PermScanContent = "scan_content"
)

// RegisterBuiltins registers every built-in agent task with the registry.
// Call once at process start; the registry is then injected into the
// execution harness.
func RegisterBuiltins(r *registry.Registry) error {
	builtins := []struct {
		def  registry.Definition
		impl registry.Task
	}{
		{
			def: registry.Definition{
				Name:           "REPO_CARTOGRAPHER",
				Description:    "Walks the repository and maps files, languages, and git metadata.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"file_count", "total_bytes", "languages", "directories", "branch", "commit"},
			},
			impl: Cartographer{},
		},
		{
			def: registry.Definition{
				Name:           "STACK_ANALYST",
				Description:    "Classifies the technology stack from repository manifests.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"stacks", "manifests", "languages"},
			},
			impl: StackAnalyst{},
		},
		{
			def: registry.Definition{
				Name:           "HEALTH_INSPECTOR",
				Description:    "Checks repository hygiene: readme, license, tests, CI.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"checks", "test_files", "score", "max_score"},
			},
			impl: HealthInspector{},
		},
		{
			def: registry.Definition{
				Name:           "SECRETS_AND_RISK",
				Description:    "Scans file contents for leaked secrets with the Gitleaks ruleset.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo, PermScanContent},
				OutputKeys:     []string{"scanned_files", "finding_count", "findings", "findings_by_rule"},
			},
			impl: SecretsAndRisk{},
		},
		{
			def: registry.Definition{
				Name:        "VULN_TRIAGE",
				Description: "Buckets security findings by severity.",
				OutputKeys:  []string{"triaged", "by_severity", "needs_review"},
			},
			impl: VulnTriage{},
		},
		{
			def: registry.Definition{
				Name:           "DEPENDENCY_AUDITOR",
				Description:    "Inventories direct dependencies from manifests.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"dependencies", "total", "ecosystems"},
			},
			impl: DependencyAuditor{},
		},
		{
			def: registry.Definition{
				Name:           "LICENSE_AUDITOR",
				Description:    "Identifies the repository license and reviews dependency coverage.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"repository_license", "has_license", "dependencies_reviewed"},
			},
			impl: LicenseAuditor{},
		},
		{
			def: registry.Definition{
				Name:           "DOC_SCRIBE",
				Description:    "Drafts a markdown overview from discovery and stackmap outputs.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"document", "word_count"},
			},
			impl: DocScribe{},
		},
		{
			def: registry.Definition{
				Name:           "DEBT_ASSESSOR",
				Description:    "Counts technical debt markers across source files.",
				RequiredInputs: []string{"repository_root"},
				Permissions:    []string{PermReadRepo},
				OutputKeys:     []string{"total_markers", "by_marker", "by_file"},
			},
			impl: DebtAssessor{},
		},
		{
			def: registry.Definition{
				Name:        "REPORT_COMPOSER",
				Description: "Folds upstream analysis sections into one report payload.",
				OutputKeys:  []string{"sections", "section_names", "section_count"},
			},
			impl: ReportComposer{},
		},
	}

	for _, b := range builtins {
		if err := r.Register(b.def, b.impl); err != nil {
			return err
		}
	}
	return nil
}
