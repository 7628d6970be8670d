package proposal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/rules"
)

// shortWindowDays abaixo disso a janela de entrega é considerada curta
const shortWindowDays = 14

// BuildVariables mapeia a estimativa nas sete seções do template
func BuildVariables(est *model.EstimateResult) map[string]string {
	return map[string]string{
		VarExecutiveSummary:      executiveSummary(est),
		VarScopeAndAssumptions:   scopeAndAssumptions(est),
		VarWorkBreakdown:         workBreakdown(est),
		VarTimelineAndMilestones: timelineAndMilestones(est),
		VarPricingAndPayment:     pricingAndPayment(est),
		VarRisksAndMitigations:   risksAndMitigations(est),
		VarNextSteps:             nextSteps(est),
	}
}

// Renderer aplica um template fixo às estimativas
type Renderer struct {
	template string
}

// NewRenderer cria um renderer; template vazio usa o embutido
func NewRenderer(template string) *Renderer {
	if template == "" {
		template = defaultTemplate
	}
	return &Renderer{template: template}
}

// Render devolve a proposta em markdown e em texto puro
func (r *Renderer) Render(est *model.EstimateResult) (markdown, plainText string) {
	markdown = Render(r.template, BuildVariables(est))
	return markdown, MarkdownToPlainText(markdown)
}

func executiveSummary(est *model.EstimateResult) string {
	in := est.NormalizedInput
	signals := est.EstimationSignals
	cost := est.CostEstimate

	subject := in.ProjectDescription
	if subject == "" {
		subject = "a project whose description was not provided"
	}
	subject = strings.TrimRight(subject, ".")

	lines := []string{
		fmt.Sprintf("This proposal covers the delivery of the following project: %s.", subject),
		fmt.Sprintf("The plan spans %d workstreams totalling %s hours of effort (%s weeks at %s hours per week), with delivery targeted for %s.",
			len(est.TaskBreakdown),
			FormatNumber(signals.TimelineModel.TotalHours),
			FormatNumber(signals.TimelineModel.RequiredWeeks),
			FormatNumber(signals.TimelineModel.TeamVelocityHoursPerWeek),
			in.Deadline),
		fmt.Sprintf("The estimated investment is %s, which is %s, and the schedule is %s.",
			money(cost.Total, cost.Currency),
			budgetPhrase(est),
			deadlinePhrase(signals.DeadlineStatus)),
	}
	return strings.Join(lines, "\n")
}

func budgetPhrase(est *model.EstimateResult) string {
	budget := est.NormalizedInput.Budget
	available := money(budget.Amount, budget.Currency)

	if budget.Amount <= 0 {
		return "not yet covered because no budget was provided"
	}
	switch est.EstimationSignals.BudgetStatus.Status {
	case model.BudgetWithin:
		return "within the available budget of " + available
	case model.BudgetAtRisk:
		return "at risk against the available budget of " + available
	default:
		return "over the available budget of " + available
	}
}

func deadlinePhrase(status model.DeadlineStatus) string {
	switch status.Status {
	case model.DeadlineOnTrack:
		return fmt.Sprintf("on track with %s days of slack", FormatNumber(status.SlackDays))
	case model.DeadlineTight:
		return fmt.Sprintf("tight with %s days of slack", FormatNumber(status.SlackDays))
	default:
		return "unrealistic for the requested deadline"
	}
}

func scopeAndAssumptions(est *model.EstimateResult) string {
	in := est.NormalizedInput

	inScope := in.ProjectDescription
	if inScope == "" {
		inScope = "To be defined during discovery."
	}

	assumptions := []string{
		fmt.Sprintf("Estimates assume a dedicated team delivering about %s hours per week.",
			FormatNumber(est.EstimationSignals.TimelineModel.TeamVelocityHoursPerWeek)),
		"Requirements are confirmed before development starts; later changes go through change control.",
	}

	if in.ProjectDescription == "" {
		assumptions = append(assumptions, "No project description was provided, so scope will be defined in a discovery session before work begins.")
	} else if rules.IsUnclearScope(in.ProjectDescription) {
		assumptions = append(assumptions, "The project description is brief or leaves items open, so scope will be refined in a discovery session before work begins.")
	}

	if in.Budget.Amount <= 0 {
		assumptions = append(assumptions, "No budget was provided, so pricing is based on estimated effort only.")
	}

	days := in.Metadata.AvailableDurationDays
	switch {
	case days <= 0:
		assumptions = append(assumptions, "The requested deadline is today or already past, so a new delivery date must be agreed.")
	case days < shortWindowDays:
		assumptions = append(assumptions, "The delivery window is short, so scope may be reduced to an MVP to meet the date.")
	}

	var b strings.Builder
	b.WriteString("**In scope:** ")
	b.WriteString(inScope)
	b.WriteString("\n\n**Assumptions:**\n")
	b.WriteString(bullets(assumptions))
	return b.String()
}

func workBreakdown(est *model.EstimateResult) string {
	sizing := est.EstimationSignals.TaskSizing

	items := make([]string, 0, len(est.TaskBreakdown))
	for i, task := range est.TaskBreakdown {
		tier := rules.TaskTier(task.EstimatedHours)
		if i < len(sizing) {
			tier = sizing[i].Tier
		}
		items = append(items, fmt.Sprintf("**%s** (%s h, size %s): %s",
			task.Task, FormatNumber(task.EstimatedHours), tier, task.Description))
	}
	if len(items) == 0 {
		items = append(items, "Work breakdown to be confirmed.")
	}

	return bullets(items) + fmt.Sprintf("\n\nTotal estimated effort: %s hours.",
		FormatNumber(rules.TotalHours(est.TaskBreakdown)))
}

func timelineAndMilestones(est *model.EstimateResult) string {
	timeline := est.EstimationSignals.TimelineModel

	items := make([]string, 0, len(est.Timeline))
	for _, milestone := range est.Timeline {
		items = append(items, fmt.Sprintf("%s: %s", milestone.Date, milestone.Milestone))
	}
	if len(items) == 0 {
		items = append(items, "Milestones to be confirmed.")
	}

	return bullets(items) + fmt.Sprintf("\n\nTarget delivery date: %s. Required duration: %s weeks (%s working days) at %s hours per week.",
		est.NormalizedInput.Deadline,
		FormatNumber(timeline.RequiredWeeks),
		FormatNumber(timeline.RequiredDays),
		FormatNumber(timeline.TeamVelocityHoursPerWeek))
}

func pricingAndPayment(est *model.EstimateResult) string {
	cost := est.CostEstimate
	kickoff := rules.Round(cost.Total/2, 2)
	delivery := rules.Round(cost.Total-kickoff, 2)

	items := []string{
		"Subtotal: " + money(cost.Subtotal, cost.Currency),
		"Contingency (10%): " + money(cost.Contingency, cost.Currency),
		"Total: " + money(cost.Total, cost.Currency),
	}

	return bullets(items) + fmt.Sprintf("\n\nPayment terms assume a 50/50 split: %s at project kickoff and %s on final delivery.",
		money(kickoff, cost.Currency), money(delivery, cost.Currency))
}

func risksAndMitigations(est *model.EstimateResult) string {
	items := make([]string, 0, len(est.RiskFlags))
	for _, risk := range est.RiskFlags {
		items = append(items, fmt.Sprintf("**%s** (severity: %s): %s", risk.Issue, risk.Severity, risk.Mitigation))
	}
	if len(items) == 0 {
		items = append(items, "No risks recorded.")
	}
	return bullets(items)
}

func nextSteps(est *model.EstimateResult) string {
	signals := est.EstimationSignals
	budget := est.NormalizedInput.Budget

	steps := []string{"Review this proposal and confirm the scope and assumptions."}

	switch {
	case budget.Amount <= 0:
		steps = append(steps, "Share the available budget so pricing can be confirmed.")
	case signals.BudgetStatus.Status != model.BudgetWithin:
		steps = append(steps, fmt.Sprintf("Agree on scope priorities or a budget adjustment to cover the gap of %s.",
			money(signals.BudgetStatus.Shortfall, est.CostEstimate.Currency)))
	}

	if signals.DeadlineStatus.Status != model.DeadlineOnTrack {
		steps = append(steps, "Agree on a phased delivery plan or a revised deadline.")
	}

	steps = append(steps,
		"Schedule the kickoff meeting and confirm the first milestone.",
		"Approve the kickoff payment to start work.",
	)
	return bullets(steps)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func money(amount float64, currency string) string {
	return strings.TrimSpace(FormatNumber(amount) + " " + currency)
}

// FormatNumber formata um número com a menor representação exata, sem expoente
func FormatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
