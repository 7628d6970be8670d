package rules

import (
	"regexp"
	"unicode/utf8"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

// minClearScopeLength é o tamanho mínimo de uma descrição considerada clara
const minClearScopeLength = 80

var (
	vagueScopePattern         = regexp.MustCompile(`(?i)(tbd|etc\.|and more|something like|to be decided|as needed)`)
	externalDependencyPattern = regexp.MustCompile(`(?i)(third[- ]party|vendor|integration|dependency|api|payment gateway|external service)`)
)

// Textos dos alertas de risco
const (
	IssueUnclearScope   = "Unclear scope"
	IssueTightDeadline  = "Tight deadline"
	IssueBudgetShortage = "Budget shortfall"
	IssueExternalDeps   = "External dependencies"
	IssueNoRisks        = "No immediate execution risks detected"
)

// RiskContext é o que cada detector enxerga
type RiskContext struct {
	ProjectDescription string
	BudgetStatus       model.BudgetStatus
	DeadlineStatus     model.DeadlineStatus
}

// Detector avalia um risco; o bool indica se o alerta deve entrar na lista
type Detector func(RiskContext) (model.RiskFlag, bool)

// DefaultDetectors na ordem em que os alertas aparecem
var DefaultDetectors = []Detector{
	DetectUnclearScope,
	DetectTightDeadline,
	DetectBudgetShortfall,
	DetectExternalDependencies,
}

// NoRisksFlag é o alerta sentinela usado quando nenhum detector dispara
func NoRisksFlag() model.RiskFlag {
	return model.RiskFlag{
		Severity:   model.SeverityLow,
		Issue:      IssueNoRisks,
		Mitigation: "Maintain weekly checkpoints to keep scope, schedule, and budget aligned.",
	}
}

// BuildRiskFlags roda os detectores em ordem. Sem detectores usa DefaultDetectors.
// A lista devolvida nunca é vazia.
func BuildRiskFlags(ctx RiskContext, detectors ...Detector) []model.RiskFlag {
	if len(detectors) == 0 {
		detectors = DefaultDetectors
	}

	flags := make([]model.RiskFlag, 0, len(detectors))
	for _, detect := range detectors {
		if flag, ok := detect(ctx); ok {
			flags = append(flags, flag)
		}
	}

	if len(flags) == 0 {
		flags = append(flags, NoRisksFlag())
	}
	return flags
}

// IsUnclearScope indica descrição curta ou com linguagem vaga
func IsUnclearScope(description string) bool {
	if utf8.RuneCountInString(description) < minClearScopeLength {
		return true
	}
	return vagueScopePattern.MatchString(description)
}

// HasExternalDependencies indica menção a terceiros ou integrações
func HasExternalDependencies(description string) bool {
	return externalDependencyPattern.MatchString(description)
}

// DetectUnclearScope sinaliza escopo pouco definido
func DetectUnclearScope(ctx RiskContext) (model.RiskFlag, bool) {
	if !IsUnclearScope(ctx.ProjectDescription) {
		return model.RiskFlag{}, false
	}
	return model.RiskFlag{
		Severity:   model.SeverityMedium,
		Issue:      IssueUnclearScope,
		Mitigation: "Run a scoping workshop, define acceptance criteria, and baseline assumptions.",
	}, true
}

// DetectTightDeadline sinaliza prazo apertado; irrealista vira severidade alta
func DetectTightDeadline(ctx RiskContext) (model.RiskFlag, bool) {
	if ctx.DeadlineStatus.Status == model.DeadlineOnTrack {
		return model.RiskFlag{}, false
	}
	severity := model.SeverityMedium
	if ctx.DeadlineStatus.Status == model.DeadlineUnrealistic {
		severity = model.SeverityHigh
	}
	return model.RiskFlag{
		Severity:   severity,
		Issue:      IssueTightDeadline,
		Mitigation: "Reduce scope to MVP, parallelize workstreams, and lock milestone decisions weekly.",
	}, true
}

// DetectBudgetShortfall sinaliza orçamento insuficiente; estouro vira severidade alta
func DetectBudgetShortfall(ctx RiskContext) (model.RiskFlag, bool) {
	if ctx.BudgetStatus.Status == model.BudgetWithin {
		return model.RiskFlag{}, false
	}
	severity := model.SeverityMedium
	if ctx.BudgetStatus.Status == model.BudgetOver {
		severity = model.SeverityHigh
	}
	return model.RiskFlag{
		Severity:   severity,
		Issue:      IssueBudgetShortage,
		Mitigation: "Prioritize highest-value features and phase non-critical deliverables into later releases.",
	}, true
}

// DetectExternalDependencies sinaliza dependência de terceiros
func DetectExternalDependencies(ctx RiskContext) (model.RiskFlag, bool) {
	if !HasExternalDependencies(ctx.ProjectDescription) {
		return model.RiskFlag{}, false
	}
	return model.RiskFlag{
		Severity:   model.SeverityMedium,
		Issue:      IssueExternalDeps,
		Mitigation: "Confirm third-party SLAs, identify fallback options, and track integration blockers early.",
	}, true
}
