package proposal

import (
	"fmt"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

// Draft gera o rascunho legado em texto corrido.
// Mantido separado do template porque a resposta expõe os dois campos.
func Draft(est *model.EstimateResult) string {
	tasks := make([]string, 0, len(est.TaskBreakdown))
	for _, task := range est.TaskBreakdown {
		tasks = append(tasks, "- "+task.Task)
	}

	issues := make([]string, 0, len(est.RiskFlags))
	for _, risk := range est.RiskFlags {
		issues = append(issues, risk.Issue)
	}

	signals := est.EstimationSignals
	signalsContext := strings.Join([]string{
		fmt.Sprintf("Budget status: %s.", signals.BudgetStatus.Status),
		fmt.Sprintf("Deadline status: %s.", signals.DeadlineStatus.Status),
		fmt.Sprintf("Required duration: %s weeks (%s days).",
			FormatNumber(signals.TimelineModel.RequiredWeeks),
			FormatNumber(signals.TimelineModel.RequiredDays)),
		fmt.Sprintf("Detected risks: %s.", strings.Join(issues, ", ")),
	}, " ")

	return strings.Join([]string{
		"Proposed Approach:",
		strings.Join(tasks, "\n"),
		"",
		fmt.Sprintf("Target delivery date: %s.", est.NormalizedInput.Deadline),
		fmt.Sprintf("Estimated total: %s %s.", FormatNumber(est.CostEstimate.Total), est.CostEstimate.Currency),
		fmt.Sprintf("Key risks identified: %d.", len(est.RiskFlags)),
		"",
		"AI Prompt Context:",
		signalsContext,
	}, "\n")
}
