// Package rules contém as regras de negócio determinísticas da estimativa:
// faixas de tamanho, viabilidade de prazo, encaixe no orçamento e detecção de riscos.
// Todas as funções são puras e não falham para entradas válidas.
package rules

import (
	"github.com/cleberrangel/project-estimator-api/internal/model"
)

// DefaultTeamVelocityHoursPerWeek é a capacidade padrão da equipe
const DefaultTeamVelocityHoursPerWeek = 30.0

// Limites de utilização do orçamento e de razão de prazo
const (
	withinBudgetUtilization = 0.95
	atRiskUtilization       = 1.10
	onTrackRatio            = 0.8
	tightRatio              = 1.0
	workingDaysPerWeek      = 5
)

// Faixas de tamanho na ordem de avaliação
const (
	TierS  = "S"
	TierM  = "M"
	TierL  = "L"
	TierXL = "XL"
)

var tierMaxHours = map[string]float64{
	TierS: 8,
	TierM: 24,
	TierL: 56,
}

// SizingTiers retorna a tabela de faixas. XL não tem limite superior.
func SizingTiers() map[string]model.TierRange {
	return map[string]model.TierRange{
		TierS:  {MinHours: 1, MaxHours: ptr(tierMaxHours[TierS])},
		TierM:  {MinHours: 9, MaxHours: ptr(tierMaxHours[TierM])},
		TierL:  {MinHours: 25, MaxHours: ptr(tierMaxHours[TierL])},
		TierXL: {MinHours: 57},
	}
}

// TaskTier classifica horas em uma faixa; o limite superior de cada faixa é inclusivo
func TaskTier(estimatedHours float64) string {
	switch {
	case estimatedHours <= tierMaxHours[TierS]:
		return TierS
	case estimatedHours <= tierMaxHours[TierM]:
		return TierM
	case estimatedHours <= tierMaxHours[TierL]:
		return TierL
	default:
		return TierXL
	}
}

// BuildTaskSizing classifica cada task mantendo a ordem de execução
func BuildTaskSizing(tasks []model.Task) []model.TaskSizing {
	tiers := SizingTiers()
	sizing := make([]model.TaskSizing, 0, len(tasks))
	for _, task := range tasks {
		tier := TaskTier(task.EstimatedHours)
		sizing = append(sizing, model.TaskSizing{
			Task:           task.Task,
			EstimatedHours: task.EstimatedHours,
			Tier:           tier,
			DefaultRange:   tiers[tier],
		})
	}
	return sizing
}

// TotalHours soma as horas estimadas
func TotalHours(tasks []model.Task) float64 {
	var total float64
	for _, task := range tasks {
		total += task.EstimatedHours
	}
	return total
}

// HoursToTimeline converte horas em semanas e dias úteis.
// Velocidade menor ou igual a zero cai no valor padrão.
func HoursToTimeline(totalHours, teamVelocityHoursPerWeek float64) model.TimelineModel {
	velocity := teamVelocityHoursPerWeek
	if velocity <= 0 {
		velocity = DefaultTeamVelocityHoursPerWeek
	}

	var requiredWeeks float64
	if totalHours > 0 {
		requiredWeeks = totalHours / velocity
	}
	requiredDays := requiredWeeks * workingDaysPerWeek

	return model.TimelineModel{
		TotalHours:               totalHours,
		TeamVelocityHoursPerWeek: velocity,
		RequiredWeeks:            Round(requiredWeeks, 2),
		RequiredDays:             Round(requiredDays, 1),
	}
}

// GetBudgetStatus classifica o custo estimado frente ao orçamento.
// Com orçamento <= 0 o resultado é sempre over_budget e o shortfall é o custo integral, sem arredondamento.
func GetBudgetStatus(estimatedTotalCost, providedBudget float64) model.BudgetStatus {
	if providedBudget <= 0 {
		return model.BudgetStatus{
			Status:    model.BudgetOver,
			Shortfall: estimatedTotalCost,
		}
	}

	utilization := Round(estimatedTotalCost/providedBudget, 2)
	raw := estimatedTotalCost / providedBudget

	if raw <= withinBudgetUtilization {
		return model.BudgetStatus{
			Status:      model.BudgetWithin,
			Utilization: &utilization,
		}
	}

	shortfall := Round(max(0, estimatedTotalCost-providedBudget), 2)
	status := model.BudgetOver
	if raw <= atRiskUtilization {
		status = model.BudgetAtRisk
	}

	return model.BudgetStatus{
		Status:      status,
		Utilization: &utilization,
		Shortfall:   shortfall,
	}
}

// GetDeadlineStatus compara os dias úteis necessários com os dias disponíveis
func GetDeadlineStatus(requiredDays, availableDays float64) model.DeadlineStatus {
	if availableDays <= 0 {
		return model.DeadlineStatus{
			Status:    model.DeadlineUnrealistic,
			SlackDays: Round(-requiredDays, 1),
		}
	}

	ratio := requiredDays / availableDays
	slack := Round(availableDays-requiredDays, 1)

	switch {
	case ratio <= onTrackRatio:
		return model.DeadlineStatus{Status: model.DeadlineOnTrack, SlackDays: slack}
	case ratio <= tightRatio:
		return model.DeadlineStatus{Status: model.DeadlineTight, SlackDays: slack}
	default:
		return model.DeadlineStatus{Status: model.DeadlineUnrealistic, SlackDays: slack}
	}
}

// SignalInput agrupa o que as regras precisam para derivar os sinais
type SignalInput struct {
	ProjectDescription    string
	TaskBreakdown         []model.Task
	CostEstimate          model.CostEstimate
	BudgetAmount          float64
	AvailableDurationDays int
}

// DeriveEstimationSignals calcula todos os sinais derivados de uma estimativa
func DeriveEstimationSignals(in SignalInput) model.EstimationSignals {
	timeline := HoursToTimeline(TotalHours(in.TaskBreakdown), DefaultTeamVelocityHoursPerWeek)
	budgetStatus := GetBudgetStatus(in.CostEstimate.Total, in.BudgetAmount)
	deadlineStatus := GetDeadlineStatus(timeline.RequiredDays, float64(in.AvailableDurationDays))

	return model.EstimationSignals{
		SizingTiers:    SizingTiers(),
		TaskSizing:     BuildTaskSizing(in.TaskBreakdown),
		TimelineModel:  timeline,
		BudgetStatus:   budgetStatus,
		DeadlineStatus: deadlineStatus,
		RiskFlags: BuildRiskFlags(RiskContext{
			ProjectDescription: in.ProjectDescription,
			BudgetStatus:       budgetStatus,
			DeadlineStatus:     deadlineStatus,
		}),
	}
}

func ptr(v float64) *float64 {
	return &v
}
