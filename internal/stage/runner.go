// Package stage executa estágios de geração com tentativa, validação de schema e fallback.
//
// Um estágio recebe um gerador que pode devolver o valor pronto ou uma string JSON.
// A saída é validada contra o schema do estágio; se nenhuma tentativa produzir
// saída válida, o valor de fallback é devolvido junto com o motivo da última falha.
// Trocar o gerador heurístico por um backend não determinístico não muda os chamadores.
package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/sethvargo/go-retry"
)

// MaxAttempts é o número máximo de tentativas por estágio
const MaxAttempts = 2

// Generator produz a saída de um estágio para a tentativa informada (1-based).
// Pode devolver o valor já tipado ou uma string JSON.
type Generator[C any] func(ctx context.Context, input C, attempt int) (any, error)

// Definition descreve um estágio
type Definition[C, T any] struct {
	Name     string
	Schema   *Schema
	Input    C
	Generate Generator[C]
	Fallback T
}

// Outcome é o resultado de um estágio
type Outcome[T any] struct {
	Value          T
	Attempts       int
	FallbackReason string
}

// UsedFallback indica se o valor veio do fallback
func (o Outcome[T]) UsedFallback() bool {
	return o.FallbackReason != ""
}

// Run executa o estágio com até MaxAttempts tentativas sequenciais
func Run[C, T any](ctx context.Context, def Definition[C, T]) Outcome[T] {
	log := logger.Get(ctx)

	// sem espera entre tentativas
	backoff := retry.WithMaxRetries(MaxAttempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))

	var (
		attempt int
		lastErr error
		value   T
	)

	if ctx.Err() != nil {
		return fallback(ctx, def, attempt, lastErr)
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		out, attemptErr := runAttempt(ctx, def, attempt)
		if attemptErr != nil {
			lastErr = attemptErr
			log.Warn().
				Err(attemptErr).
				Str("stage", def.Name).
				Int("attempt", attempt).
				Msg("Tentativa de estágio falhou")
			return retry.RetryableError(attemptErr)
		}
		value = out
		return nil
	})
	if err == nil {
		return Outcome[T]{Value: value, Attempts: attempt}
	}
	return fallback(ctx, def, attempt, lastErr)
}

func fallback[C, T any](ctx context.Context, def Definition[C, T], attempt int, lastErr error) Outcome[T] {
	reason := fmt.Sprintf("%s failed.", def.Name)
	if lastErr != nil {
		reason = lastErr.Error()
	}

	logger.Get(ctx).Error().
		Str("stage", def.Name).
		Int("attempts", attempt).
		Str("reason", reason).
		Msg("Estágio usando fallback")

	return Outcome[T]{
		Value:          def.Fallback,
		Attempts:       attempt,
		FallbackReason: reason,
	}
}

// runAttempt executa uma tentativa; panics do gerador viram erro da tentativa
func runAttempt[C, T any](ctx context.Context, def Definition[C, T], attempt int) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", def.Name, r)
		}
	}()

	out, err := def.Generate(ctx, def.Input, attempt)
	if err != nil {
		return value, err
	}

	document := decode(out)
	if def.Schema != nil {
		if err := def.Schema.Validate(document); err != nil {
			return value, fmt.Errorf("%s %w.", def.Name, model.ErrStageSchema)
		}
	}

	if err := convert(document, &value); err != nil {
		return value, fmt.Errorf("%s %w.", def.Name, model.ErrStageSchema)
	}
	return value, nil
}

// decode normaliza a saída do gerador para a forma JSON genérica.
// String JSON inválida vira nil em vez de erro.
func decode(out any) any {
	var raw []byte
	switch v := out.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		raw = encoded
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil
	}
	return document
}

func convert(document any, target any) error {
	if document == nil {
		return errors.New("empty output")
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
