package chain

import (
	"errors"
	"fmt"
)

// Agent task names referenced by the canonical chain templates. The wiring
// below is part of the contract the HTTP and CLI layers depend on by name.
const (
	AgentRepoCartographer   = "REPO_CARTOGRAPHER"
	AgentStackAnalyst       = "STACK_ANALYST"
	AgentHealthInspector    = "HEALTH_INSPECTOR"
	AgentSecretsAndRisk     = "SECRETS_AND_RISK"
	AgentVulnTriage         = "VULN_TRIAGE"
	AgentDependencyAuditor  = "DEPENDENCY_AUDITOR"
	AgentLicenseAuditor     = "LICENSE_AUDITOR"
	AgentDocScribe          = "DOC_SCRIBE"
	AgentDebtAssessor       = "DEBT_ASSESSOR"
	AgentReportComposer     = "REPORT_COMPOSER"
)

// Canonical template names.
const (
	TemplateDiscovery       = "discovery"
	TemplateSecurityScan    = "security_scan"
	TemplateDependencyAudit = "dependency_audit"
	TemplateDocGeneration   = "doc_generation"
	TemplateTechDebt        = "tech_debt"
	TemplateFullAnalysis    = "full_analysis"
)

// ErrUnknownTemplate indicates a chain template name that does not exist.
var ErrUnknownTemplate = errors.New("unknown chain template")

// ErrNoCustomSteps indicates a custom chain built without steps.
var ErrNoCustomSteps = errors.New("steps required for custom chains")

// TemplateNames returns the canonical template names in a stable order.
func TemplateNames() []string {
	return []string{
		TemplateDiscovery,
		TemplateSecurityScan,
		TemplateDependencyAudit,
		TemplateDocGeneration,
		TemplateTechDebt,
		TemplateFullAnalysis,
	}
}

// NewTemplate constructs one of the six canonical chains by name.
// Each call returns a fresh Definition; the step wiring is fixed data.
func NewTemplate(name string) (*Definition, error) {
	switch name {
	case TemplateDiscovery:
		return &Definition{
			Name:        TemplateDiscovery,
			Description: "Map the repository, classify its stack, and report on its health.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentStackAnalyst, InputMapping: "$.discovery", OutputKey: "stackmap"},
				{TaskName: AgentHealthInspector, InputMapping: "$.stackmap", OutputKey: "health"},
				{TaskName: AgentReportComposer, InputMapping: "$.discovery,$.stackmap,$.health", OutputKey: "report"},
			},
			InitialState: map[string]any{},
		}, nil

	case TemplateSecurityScan:
		return &Definition{
			Name:        TemplateSecurityScan,
			Description: "Scan the repository for leaked secrets and triage the findings.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentSecretsAndRisk, InputMapping: "$.discovery", OutputKey: "security"},
				{TaskName: AgentVulnTriage, InputMapping: "$.security", OutputKey: "triage"},
			},
			InitialState: map[string]any{},
		}, nil

	case TemplateDependencyAudit:
		return &Definition{
			Name:        TemplateDependencyAudit,
			Description: "Inventory dependencies and audit their licenses.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentDependencyAuditor, InputMapping: "$.discovery", OutputKey: "dependencies"},
				{TaskName: AgentLicenseAuditor, InputMapping: "$.dependencies", OutputKey: "licenses"},
			},
			InitialState: map[string]any{},
		}, nil

	case TemplateDocGeneration:
		return &Definition{
			Name:        TemplateDocGeneration,
			Description: "Map the repository and draft documentation for it.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentStackAnalyst, InputMapping: "$.discovery", OutputKey: "stackmap"},
				{TaskName: AgentDocScribe, InputMapping: "$.discovery,$.stackmap", OutputKey: "docs"},
			},
			InitialState: map[string]any{},
		}, nil

	case TemplateTechDebt:
		return &Definition{
			Name:        TemplateTechDebt,
			Description: "Assess technical debt markers and summarize them.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentDebtAssessor, InputMapping: "$.discovery", OutputKey: "debt"},
				{TaskName: AgentReportComposer, InputMapping: "$.debt", OutputKey: "report"},
			},
			InitialState: map[string]any{},
		}, nil

	case TemplateFullAnalysis:
		return &Definition{
			Name:        TemplateFullAnalysis,
			Description: "Run the complete analysis suite over the repository.",
			Steps: []Step{
				{TaskName: AgentRepoCartographer, OutputKey: "discovery"},
				{TaskName: AgentStackAnalyst, InputMapping: "$.discovery", OutputKey: "stackmap"},
				// Secret scanning is best-effort in the full suite: a failed
				// scan still leaves the remaining analyses worth running.
				{TaskName: AgentSecretsAndRisk, InputMapping: "$.discovery", OutputKey: "security", ContinueOnFailure: true},
				{TaskName: AgentDependencyAuditor, InputMapping: "$.discovery", OutputKey: "dependencies"},
				{TaskName: AgentDebtAssessor, InputMapping: "$.stackmap", OutputKey: "debt"},
				{TaskName: AgentReportComposer, InputMapping: "$.discovery,$.stackmap,$.security,$.dependencies,$.debt", OutputKey: "report"},
			},
			InitialState: map[string]any{},
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
}

// NewCustomDefinition builds a chain from caller-supplied steps. Construction
// fails if no steps are supplied or any step is structurally invalid.
func NewCustomDefinition(name string, steps []Step, initialState map[string]any) (*Definition, error) {
	if len(steps) == 0 {
		return nil, ErrNoCustomSteps
	}
	if name == "" {
		name = "custom"
	}
	def := &Definition{
		Name:         name,
		Description:  "Caller-defined chain.",
		Steps:        append([]Step(nil), steps...),
		InitialState: initialState,
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
