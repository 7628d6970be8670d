package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/proposal"
	"gopkg.in/yaml.v3"
)

// Formatos de saída
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#4472C4")).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4472C4")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(18)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)

	severityColors = map[model.Severity]lipgloss.Color{
		model.SeverityHigh:   lipgloss.Color("#FF6B6B"),
		model.SeverityMedium: lipgloss.Color("#F5A623"),
		model.SeverityLow:    lipgloss.Color("#7ED321"),
	}
)

func isOutputFormat(format string) bool {
	switch format {
	case formatTable, formatJSON, formatYAML, formatMarkdown:
		return true
	}
	return false
}

func writeOutput(w io.Writer, format string, est *model.EstimateResult) error {
	switch format {
	case formatJSON:
		return outputJSON(w, est)
	case formatYAML:
		return outputYAML(w, est)
	case formatMarkdown:
		_, err := fmt.Fprintln(w, est.ProposalMarkdown)
		return err
	default:
		_, err := fmt.Fprintln(w, renderTable(est))
		return err
	}
}

func outputJSON(w io.Writer, est *model.EstimateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(est)
}

// outputYAML converte o JSON da estimativa em YAML mantendo a ordem dos campos
func outputYAML(w io.Writer, est *model.EstimateResult) error {
	data, err := json.Marshal(est)
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	resetStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// resetStyle troca o estilo de fluxo herdado do JSON pelo estilo de bloco
func resetStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		resetStyle(child)
	}
}

func renderTable(est *model.EstimateResult) string {
	var b strings.Builder
	input := est.NormalizedInput
	signals := est.EstimationSignals
	cost := est.CostEstimate

	b.WriteString(titleStyle.Render("Project Estimate"))
	b.WriteString("\n")

	rows := [][2]string{
		{"Deadline", fmt.Sprintf("%s (%d days)", input.Deadline, input.Metadata.AvailableDurationDays)},
		{"Budget", fmt.Sprintf("%s %s", proposal.FormatNumber(input.Budget.Amount), input.Budget.Currency)},
		{"Total cost", fmt.Sprintf("%s %s", proposal.FormatNumber(cost.Total), cost.Currency)},
		{"Budget status", signals.BudgetStatus.Status},
		{"Deadline status", signals.DeadlineStatus.Status},
		{"Total hours", proposal.FormatNumber(signals.TimelineModel.TotalHours)},
		{"Required weeks", proposal.FormatNumber(signals.TimelineModel.RequiredWeeks)},
	}
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(row[0]))
		b.WriteString(row[1])
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Tasks"))
	b.WriteString("\n")
	tasks := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Task", "Hours", "Tier").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, task := range est.TaskBreakdown {
		tier := ""
		if i < len(signals.TaskSizing) {
			tier = signals.TaskSizing[i].Tier
		}
		tasks.Row(task.Task, proposal.FormatNumber(task.EstimatedHours), tier)
	}
	b.WriteString(tasks.Render())

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Timeline"))
	for _, milestone := range est.Timeline {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(milestone.Date))
		b.WriteString(milestone.Milestone)
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Risks"))
	for _, risk := range est.RiskFlags {
		severity := lipgloss.NewStyle().
			Bold(true).
			Foreground(severityColors[risk.Severity]).
			Render(strings.ToUpper(string(risk.Severity)))
		fmt.Fprintf(&b, "\n[%s] %s: %s", severity, risk.Issue, risk.Mitigation)
	}

	return b.String()
}
