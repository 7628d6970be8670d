// Package proposal gera a proposta em markdown a partir de um template com placeholders {{chave}},
// a versão em texto puro derivada dela e o rascunho legado em texto corrido.
package proposal

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

//go:embed templates/proposal.md
var defaultTemplate string

// Nomes das variáveis do template, na ordem das seções
const (
	VarExecutiveSummary      = "executiveSummary"
	VarScopeAndAssumptions   = "scopeAndAssumptions"
	VarWorkBreakdown         = "workBreakdown"
	VarTimelineAndMilestones = "timelineAndMilestones"
	VarPricingAndPayment     = "pricingAndPayment"
	VarRisksAndMitigations   = "risksAndMitigations"
	VarNextSteps             = "nextSteps"
)

// Variables lista as variáveis que todo template precisa conter
var Variables = []string{
	VarExecutiveSummary,
	VarScopeAndAssumptions,
	VarWorkBreakdown,
	VarTimelineAndMilestones,
	VarPricingAndPayment,
	VarRisksAndMitigations,
	VarNextSteps,
}

// Headings são os títulos obrigatórios, na ordem em que devem aparecer
var Headings = []string{
	"# Project Proposal",
	"## 1. Executive summary",
	"## 2. Scope and assumptions",
	"## 3. Work breakdown",
	"## 4. Timeline and milestones",
	"## 5. Pricing and payment assumptions",
	"## 6. Risks and mitigations",
	"## 7. Next steps",
}

var (
	placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)
	headingPattern     = regexp.MustCompile(`(?m)^#+[ \t]*`)
	boldPattern        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	listMarkerPattern  = regexp.MustCompile(`(?m)^[ \t]*-[ \t]+`)
	blankLinesPattern  = regexp.MustCompile(`\n{3,}`)
)

// DefaultTemplate retorna o template embutido
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate lê e valida um template externo. Caminho vazio usa o embutido.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ler template %s: %w", path, err)
	}

	source := string(content)
	if err := VerifyTemplate(source); err != nil {
		return "", err
	}
	return source, nil
}

// VerifyTemplate confere placeholders e a ordem dos títulos
func VerifyTemplate(source string) error {
	for _, name := range Variables {
		if !strings.Contains(source, "{{"+name+"}}") {
			return fmt.Errorf("%w: placeholder {{%s}} ausente", model.ErrInvalidTemplate, name)
		}
	}

	last := -1
	for _, heading := range Headings {
		pos := strings.Index(source, heading)
		if pos < 0 {
			return fmt.Errorf("%w: título %q ausente", model.ErrInvalidTemplate, heading)
		}
		if pos <= last {
			return fmt.Errorf("%w: título %q fora de ordem", model.ErrInvalidTemplate, heading)
		}
		last = pos
	}
	return nil
}

// Render substitui todas as ocorrências de {{chave}} pelo valor da variável.
// Placeholders sem variável correspondente ficam como estão.
func Render(template string, variables map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := variables[key]; ok {
			return value
		}
		return match
	})
}

// MarkdownToPlainText remove marcadores de título, negrito e lista e compacta linhas em branco.
// Não é um parser de markdown: só esses quatro padrões são reconhecidos.
func MarkdownToPlainText(markdown string) string {
	text := headingPattern.ReplaceAllString(markdown, "")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = listMarkerPattern.ReplaceAllString(text, "")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
