package service

import (
	"context"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/proposal"
	"github.com/cleberrangel/project-estimator-api/internal/rules"
	"github.com/cleberrangel/project-estimator-api/internal/stage"
	"github.com/google/uuid"
)

// ProgressFunc recebe um evento ao fim de cada estágio
type ProgressFunc func(model.StageEvent)

// EstimatorService orquestra o pipeline de estimativa
type EstimatorService struct {
	renderer          *proposal.Renderer
	simulateMalformed bool
	now               func() time.Time
	source            string
}

// Option configura o EstimatorService
type Option func(*EstimatorService)

// WithClock define o relógio usado como "agora"
func WithClock(now func() time.Time) Option {
	return func(s *EstimatorService) {
		s.now = now
	}
}

// WithTemplate usa um template de proposta já validado
func WithTemplate(template string) Option {
	return func(s *EstimatorService) {
		s.renderer = proposal.NewRenderer(template)
	}
}

// WithSimulatedMalformedOutput força JSON inválido na primeira tentativa do estágio de tasks
func WithSimulatedMalformedOutput(enabled bool) Option {
	return func(s *EstimatorService) {
		s.simulateMalformed = enabled
	}
}

// WithSource define o rótulo de origem usado nas métricas
func WithSource(source string) Option {
	return func(s *EstimatorService) {
		s.source = source
	}
}

type sourceKey struct{}

// ContextWithSource sobrescreve, para uma chamada, a origem registrada nas métricas
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func (s *EstimatorService) sourceFor(ctx context.Context) string {
	if source, ok := ctx.Value(sourceKey{}).(string); ok && source != "" {
		return source
	}
	return s.source
}

// NewEstimatorService cria o serviço de estimativa
func NewEstimatorService(opts ...Option) *EstimatorService {
	s := &EstimatorService{
		renderer: proposal.NewRenderer(""),
		now:      time.Now,
		source:   "api",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEstimate executa o pipeline completo. Nunca falha para entrada bem tipada:
// estágios que não produzem saída válida caem no fallback.
func (s *EstimatorService) CreateEstimate(ctx context.Context, raw model.RawInput) *model.EstimateResult {
	return s.CreateEstimateWithProgress(ctx, raw, nil)
}

// CreateEstimateWithProgress é CreateEstimate notificando o fim de cada estágio
func (s *EstimatorService) CreateEstimateWithProgress(ctx context.Context, raw model.RawInput, progress ProgressFunc) *model.EstimateResult {
	start := time.Now()
	now := s.now()

	id := uuid.NewString()
	ctx = logger.WithOperationID(ctx, id)
	log := logger.Get(ctx)

	normalized := Normalize(raw, now)
	log.Info().
		Int("description_length", len(normalized.ProjectDescription)).
		Float64("budget", normalized.Budget.Amount).
		Str("currency", normalized.Budget.Currency).
		Str("deadline", normalized.Deadline).
		Int("available_days", normalized.Metadata.AvailableDurationDays).
		Msg("Iniciando estimativa")

	result := &model.EstimateResult{
		ID:              id,
		NormalizedInput: normalized,
	}
	run := stageRunner{result: result, progress: progress}

	// 1. Tasks
	result.TaskBreakdown = runStage(ctx, &run, stage.Definition[TaskInput, []model.Task]{
		Name:     StageTaskBreakdown,
		Schema:   stage.TaskBreakdownSchema,
		Input:    TaskInput{ProjectDescription: normalized.ProjectDescription},
		Generate: TaskGenerator(s.simulateMalformed),
		Fallback: FallbackTasks(),
	})

	// 2. Cronograma
	result.Timeline = runStage(ctx, &run, stage.Definition[TimelineInput, []model.Milestone]{
		Name:     StageTimeline,
		Schema:   stage.TimelineSchema,
		Input:    TimelineInput{TaskBreakdown: result.TaskBreakdown, Deadline: normalized.Deadline, Now: now},
		Generate: TimelineGenerator,
		Fallback: FallbackTimeline(normalized.Deadline),
	})

	// 3. Custo
	result.CostEstimate = runStage(ctx, &run, stage.Definition[CostInput, model.CostEstimate]{
		Name:     StageCostEstimate,
		Schema:   stage.CostEstimateSchema,
		Input:    CostInput{TaskBreakdown: result.TaskBreakdown, Budget: normalized.Budget},
		Generate: CostGenerator,
		Fallback: FallbackCost(normalized.Budget),
	})
	if reason, ok := result.FallbackReasons[StageCostEstimate]; ok {
		result.CostEstimate.FallbackReason = reason
	}

	// 4. Sinais derivados pelas regras
	result.EstimationSignals = rules.DeriveEstimationSignals(rules.SignalInput{
		ProjectDescription:    normalized.ProjectDescription,
		TaskBreakdown:         result.TaskBreakdown,
		CostEstimate:          result.CostEstimate,
		BudgetAmount:          normalized.Budget.Amount,
		AvailableDurationDays: normalized.Metadata.AvailableDurationDays,
	})

	// 5. Alertas passam pelo mesmo schema antes de sair
	result.RiskFlags = runStage(ctx, &run, stage.Definition[[]model.RiskFlag, []model.RiskFlag]{
		Name:     StageRiskFlags,
		Schema:   stage.RiskFlagsSchema,
		Input:    result.EstimationSignals.RiskFlags,
		Generate: RiskFlagsPassthrough,
		Fallback: result.EstimationSignals.RiskFlags,
	})

	// 6. Propostas
	result.ProposalDraft = proposal.Draft(result)
	result.ProposalMarkdown, result.ProposalPlainText = s.renderer.Render(result)

	metrics.IncrementEstimate(s.sourceFor(ctx))
	log.Info().
		Int("tasks", len(result.TaskBreakdown)).
		Float64("total", result.CostEstimate.Total).
		Str("budget_status", result.EstimationSignals.BudgetStatus.Status).
		Str("deadline_status", result.EstimationSignals.DeadlineStatus.Status).
		Int("risks", len(result.RiskFlags)).
		Int("fallbacks", len(result.FallbackReasons)).
		Dur("duration", time.Since(start)).
		Msg("Estimativa concluída")

	return result
}

type stageRunner struct {
	result   *model.EstimateResult
	progress ProgressFunc
}

// runStage executa um estágio registrando métricas, motivo de fallback e progresso
func runStage[C, T any](ctx context.Context, r *stageRunner, def stage.Definition[C, T]) T {
	start := time.Now()
	outcome := stage.Run(ctx, def)
	metrics.RecordStage(def.Name, outcome.Attempts, outcome.UsedFallback(), time.Since(start))

	if outcome.UsedFallback() {
		if r.result.FallbackReasons == nil {
			r.result.FallbackReasons = make(map[string]string)
		}
		r.result.FallbackReasons[def.Name] = outcome.FallbackReason
	}

	if r.progress != nil {
		r.progress(model.StageEvent{
			Type:     "stage",
			Stage:    def.Name,
			Attempts: outcome.Attempts,
			Fallback: outcome.UsedFallback(),
			Reason:   outcome.FallbackReason,
		})
	}
	return outcome.Value
}
