package model

// Severity é o nível de um alerta de risco
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Budget contém o orçamento normalizado
type Budget struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// DurationMetadata descreve a janela disponível até o prazo
type DurationMetadata struct {
	AvailableDurationDays  int     `json:"availableDurationDays"`
	AvailableDurationWeeks float64 `json:"availableDurationWeeks"`
	IsPastDeadline         bool    `json:"isPastDeadline"`
}

// NormalizedInput é a entrada canônica produzida pelo normalizador.
// Criada uma vez por requisição e nunca alterada depois.
type NormalizedInput struct {
	ProjectDescription string           `json:"projectDescription"`
	Budget             Budget           `json:"budget"`
	Deadline           string           `json:"deadline"`
	Metadata           DurationMetadata `json:"metadata"`
}

// Task representa uma etapa de trabalho estimada
type Task struct {
	Task           string  `json:"task"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimatedHours"`
}

// Milestone representa um marco do cronograma
type Milestone struct {
	Milestone string `json:"milestone"`
	Date      string `json:"date"`
}

// CostEstimate contém o custo estimado.
// FallbackReason só é preenchido quando o estágio de custo caiu no valor padrão.
type CostEstimate struct {
	Subtotal       float64 `json:"subtotal"`
	Contingency    float64 `json:"contingency"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	FallbackReason string  `json:"_fallbackReason,omitempty"`
}

// IsZero indica se nenhum valor de custo foi informado
func (c CostEstimate) IsZero() bool {
	return c.Subtotal == 0 && c.Contingency == 0 && c.Total == 0 && c.Currency == ""
}

// RiskFlag representa um risco detectado e sua mitigação
type RiskFlag struct {
	Severity   Severity `json:"severity"`
	Issue      string   `json:"issue"`
	Mitigation string   `json:"mitigation"`
}

// TierRange define os limites de horas de uma faixa de tamanho.
// MaxHours nil significa sem limite superior.
type TierRange struct {
	MinHours float64  `json:"minHours"`
	MaxHours *float64 `json:"maxHours"`
}

// TaskSizing é a classificação de uma task por faixa
type TaskSizing struct {
	Task           string    `json:"task"`
	EstimatedHours float64   `json:"estimatedHours"`
	Tier           string    `json:"tier"`
	DefaultRange   TierRange `json:"defaultRange"`
}

// TimelineModel é o modelo de viabilidade de prazo
type TimelineModel struct {
	TotalHours               float64 `json:"totalHours"`
	TeamVelocityHoursPerWeek float64 `json:"teamVelocityHoursPerWeek"`
	RequiredWeeks            float64 `json:"requiredWeeks"`
	RequiredDays             float64 `json:"requiredDays"`
}

// Status de orçamento
const (
	BudgetWithin = "within_budget"
	BudgetAtRisk = "at_risk"
	BudgetOver   = "over_budget"
)

// Status de prazo
const (
	DeadlineOnTrack     = "on_track"
	DeadlineTight       = "tight"
	DeadlineUnrealistic = "unrealistic"
)

// BudgetStatus descreve o encaixe do custo no orçamento.
// Utilization é nil quando o orçamento é zero ou negativo.
type BudgetStatus struct {
	Status      string   `json:"status"`
	Utilization *float64 `json:"utilization"`
	Shortfall   float64  `json:"shortfall"`
}

// DeadlineStatus descreve a folga em relação ao prazo
type DeadlineStatus struct {
	Status    string  `json:"status"`
	SlackDays float64 `json:"slackDays"`
}

// EstimationSignals reúne os sinais derivados pelas regras de negócio
type EstimationSignals struct {
	SizingTiers    map[string]TierRange `json:"sizingTiers"`
	TaskSizing     []TaskSizing         `json:"taskSizing"`
	TimelineModel  TimelineModel        `json:"timelineModel"`
	BudgetStatus   BudgetStatus         `json:"budgetStatus"`
	DeadlineStatus DeadlineStatus       `json:"deadlineStatus"`
	RiskFlags      []RiskFlag           `json:"riskFlags"`
}

// EstimateResult é o agregado final de uma estimativa.
// Pertence somente à requisição que o produziu.
type EstimateResult struct {
	ID                string            `json:"id,omitempty"`
	NormalizedInput   NormalizedInput   `json:"normalizedInput"`
	TaskBreakdown     []Task            `json:"taskBreakdown"`
	Timeline          []Milestone       `json:"timeline"`
	CostEstimate      CostEstimate      `json:"costEstimate"`
	RiskFlags         []RiskFlag        `json:"riskFlags"`
	EstimationSignals EstimationSignals `json:"estimationSignals"`
	ProposalDraft     string            `json:"proposalDraft"`
	ProposalMarkdown  string            `json:"proposalMarkdown"`
	ProposalPlainText string            `json:"proposalPlainText"`
	FallbackReasons   map[string]string `json:"fallbackReasons,omitempty"`
}
