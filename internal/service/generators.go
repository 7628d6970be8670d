package service

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/rules"
	"github.com/cleberrangel/project-estimator-api/internal/stage"
)

// Nomes dos estágios, usados em logs, métricas e motivos de fallback
const (
	StageTaskBreakdown = "generateTaskBreakdown"
	StageTimeline      = "generateTimeline"
	StageCostEstimate  = "generateCostEstimate"
	StageRiskFlags     = "validateRuleRiskFlags"
)

// Stages lista os estágios na ordem de execução
var Stages = []string{StageTaskBreakdown, StageTimeline, StageCostEstimate, StageRiskFlags}

const (
	complexityChars = 120
	costShare       = 0.9
	contingencyRate = 0.1

	// malformedOutput simula uma resposta truncada de um backend de geração
	malformedOutput = "{not valid json"
)

// TaskInput é o contexto do estágio de tasks
type TaskInput struct {
	ProjectDescription string
}

// TimelineInput é o contexto do estágio de cronograma
type TimelineInput struct {
	TaskBreakdown []model.Task
	Deadline      string
	Now           time.Time
}

// CostInput é o contexto do estágio de custo
type CostInput struct {
	TaskBreakdown []model.Task
	Budget        model.Budget
}

// TaskGenerator devolve três tasks fixas cujas horas crescem com o tamanho da descrição.
// Com simulateMalformed a primeira tentativa devolve JSON inválido.
func TaskGenerator(simulateMalformed bool) stage.Generator[TaskInput] {
	return func(_ context.Context, in TaskInput, attempt int) (any, error) {
		if attempt == 1 && simulateMalformed {
			return malformedOutput, nil
		}

		boost := ComplexityBoost(in.ProjectDescription)
		return []model.Task{
			{
				Task:           "Requirements & Planning",
				Description:    "Clarify acceptance criteria and implementation details.",
				EstimatedHours: 6 + boost,
			},
			{
				Task:           "Development",
				Description:    "Build and refine the requested product functionality.",
				EstimatedHours: 24 + boost*3,
			},
			{
				Task:           "QA & Handoff",
				Description:    "Test, fix issues, and prepare delivery documentation.",
				EstimatedHours: 10 + boost,
			},
		}, nil
	}
}

// ComplexityBoost soma uma hora por bloco de 120 caracteres da descrição
func ComplexityBoost(description string) float64 {
	return math.Max(0, math.Ceil(float64(utf8.RuneCountInString(description))/complexityChars))
}

// FallbackTasks é usado quando o estágio de tasks não produz saída válida
func FallbackTasks() []model.Task {
	return []model.Task{
		{
			Task:           "Discovery & Scoping",
			Description:    "Review requirements and confirm assumptions.",
			EstimatedHours: 8,
		},
		{
			Task:           "Implementation",
			Description:    "Deliver the core feature set in iterative milestones.",
			EstimatedHours: 40,
		},
	}
}

// TimelineGenerator distribui um marco por task entre agora e o prazo.
// O intervalo mínimo é de um dia e nenhum marco passa do prazo.
func TimelineGenerator(_ context.Context, in TimelineInput, _ int) (any, error) {
	end, ok := ParseDeadline(in.Deadline)
	if !ok {
		// data inválida não satisfaz o schema e cai no fallback
		return nil, nil
	}

	count := max(2, len(in.TaskBreakdown))
	start := in.Now.UnixMilli()
	interval := max(dayMillis, float64(end.UnixMilli()-start)/float64(count))

	milestones := make([]model.Milestone, 0, len(in.TaskBreakdown))
	for i, task := range in.TaskBreakdown {
		date := time.UnixMilli(start + int64(interval*float64(i+1)))
		if date.After(end) {
			date = end
		}
		milestones = append(milestones, model.Milestone{
			Milestone: task.Task,
			Date:      date.UTC().Format(isoDateLayout),
		})
	}
	return milestones, nil
}

// FallbackTimeline coloca início e entrega no próprio prazo
func FallbackTimeline(deadline string) []model.Milestone {
	return []model.Milestone{
		{Milestone: "Project Kickoff", Date: deadline},
		{Milestone: "Final Delivery", Date: deadline},
	}
}

// CostGenerator deriva o custo do orçamento: 90% vira subtotal e 10% dele, contingência
func CostGenerator(_ context.Context, in CostInput, _ int) (any, error) {
	totalHours := rules.TotalHours(in.TaskBreakdown)

	rate := in.Budget.Amount
	if totalHours > 0 {
		rate = in.Budget.Amount / totalHours
	}

	subtotal := rules.Round(rate*totalHours*costShare, 2)
	contingency := rules.Round(subtotal*contingencyRate, 2)

	return model.CostEstimate{
		Subtotal:    subtotal,
		Contingency: contingency,
		Total:       rules.Round(subtotal+contingency, 2),
		Currency:    in.Budget.Currency,
	}, nil
}

// FallbackCost repete o orçamento informado sem contingência
func FallbackCost(budget model.Budget) model.CostEstimate {
	return model.CostEstimate{
		Subtotal:    budget.Amount,
		Contingency: 0,
		Total:       budget.Amount,
		Currency:    budget.Currency,
	}
}

// RiskFlagsPassthrough devolve os alertas já calculados pelas regras para validação
func RiskFlagsPassthrough(_ context.Context, flags []model.RiskFlag, _ int) (any, error) {
	return flags, nil
}
