// Package export gera os arquivos exportáveis de uma estimativa: PDF de página única,
// DOCX mínimo e planilha XLSX. PDF e DOCX são montados byte a byte a partir do
// texto achatado da estimativa, sem biblioteca de documentos.
package export

import (
	"fmt"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/proposal"
)

const notAvailable = "N/A"

// ToDocumentText achata a estimativa no texto compartilhado pelos exportadores
func ToDocumentText(est *model.EstimateResult) string {
	in := est.NormalizedInput

	description := orNA(in.ProjectDescription)
	deadline := orNA(in.Deadline)

	budget := notAvailable
	if in.Budget != (model.Budget{}) {
		budget = strings.TrimSpace(proposal.FormatNumber(in.Budget.Amount) + " " + in.Budget.Currency)
	}

	tasks := make([]string, 0, len(est.TaskBreakdown))
	for _, task := range est.TaskBreakdown {
		tasks = append(tasks, fmt.Sprintf("- %s (%sh): %s", task.Task, proposal.FormatNumber(task.EstimatedHours), task.Description))
	}

	timeline := make([]string, 0, len(est.Timeline))
	for _, item := range est.Timeline {
		timeline = append(timeline, fmt.Sprintf("- %s: %s", item.Date, item.Milestone))
	}

	risks := make([]string, 0, len(est.RiskFlags))
	for _, risk := range est.RiskFlags {
		risks = append(risks, fmt.Sprintf("- [%s] %s | Mitigation: %s", strings.ToUpper(string(risk.Severity)), risk.Issue, risk.Mitigation))
	}

	return strings.Join([]string{
		"Project Estimate Export",
		"",
		"Project Overview",
		"Description: " + description,
		"Deadline: " + deadline,
		"Budget: " + budget,
		"",
		"Task Breakdown",
		listOrNA(tasks),
		"",
		"Timeline",
		listOrNA(timeline),
		"",
		"Cost Estimate",
		costLine("Subtotal", est.CostEstimate, est.CostEstimate.Subtotal),
		costLine("Contingency", est.CostEstimate, est.CostEstimate.Contingency),
		costLine("Total", est.CostEstimate, est.CostEstimate.Total),
		"",
		"Risk Flags",
		listOrNA(risks),
		"",
		"Proposal",
		proposalBody(est),
	}, "\n")
}

func proposalBody(est *model.EstimateResult) string {
	for _, candidate := range []string{est.ProposalMarkdown, est.ProposalPlainText, est.ProposalDraft} {
		if candidate != "" {
			return candidate
		}
	}
	return notAvailable
}

func costLine(label string, cost model.CostEstimate, value float64) string {
	amount := notAvailable
	if !cost.IsZero() {
		amount = proposal.FormatNumber(value)
	}
	return strings.TrimSpace(fmt.Sprintf("%s: %s %s", label, amount, cost.Currency))
}

func orNA(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}

func listOrNA(lines []string) string {
	if len(lines) == 0 {
		return "- " + notAvailable
	}
	return strings.Join(lines, "\n")
}

// NormalizeText unifica quebras de linha e troca tudo fora de tab, newline
// e ASCII imprimível por '?'
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\t' || r == '\n' || (r >= 0x20 && r <= 0x7E) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('?')
	}
	return b.String()
}

// WrapText quebra o texto em linhas de até maxChars colunas.
// Palavras maiores que a largura são cortadas em pedaços do tamanho da largura.
func WrapText(text string, maxChars int) []string {
	var lines []string

	for _, source := range strings.Split(NormalizeText(text), "\n") {
		if strings.TrimSpace(source) == "" {
			lines = append(lines, "")
			continue
		}

		current := ""
		for _, word := range strings.Fields(source) {
			switch {
			case current == "" && len(word) <= maxChars:
				current = word
			case current == "":
				lines = append(lines, chunk(word, maxChars)...)
			case len(current)+1+len(word) <= maxChars:
				current += " " + word
			default:
				lines = append(lines, current)
				current = ""
				if len(word) <= maxChars {
					current = word
				} else {
					lines = append(lines, chunk(word, maxChars)...)
				}
			}
		}

		if current != "" {
			lines = append(lines, current)
		}
	}

	return lines
}

func chunk(word string, size int) []string {
	parts := make([]string, 0, len(word)/size+1)
	for start := 0; start < len(word); start += size {
		end := min(start+size, len(word))
		parts = append(parts, word[start:end])
	}
	return parts
}
