package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/rules"
)

const (
	day       = 24 * time.Hour
	dayMillis = 24 * 60 * 60 * 1000

	// fallbackDurationDays é usado quando o prazo não pode ser interpretado
	fallbackDurationDays = 30

	defaultCurrency = "USD"
	isoDateLayout   = "2006-01-02"
)

var (
	nonNumericPattern = regexp.MustCompile(`[^0-9.-]+`)
	// prefixo numérico aceito, no mesmo espírito de um parseFloat tolerante
	numericPrefixPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// layouts aceitos para o prazo, do mais específico ao mais simples.
// Sem fuso explícito o horário é interpretado em UTC.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	isoDateLayout,
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
}

// Normalize converte a entrada bruta na forma canônica. Nunca falha:
// valores inválidos viram padrões (orçamento 0, moeda USD, prazo em 30 dias).
func Normalize(raw model.RawInput, now time.Time) model.NormalizedInput {
	var amount, currency any
	if raw.Budget != nil {
		amount = raw.Budget.Amount
		currency = raw.Budget.Currency
	}

	deadline, days := parseDeadline(raw.Deadline, now)

	return model.NormalizedInput{
		ProjectDescription: normalizeDescription(raw.ProjectDescription),
		Budget: model.Budget{
			Amount:   parseBudgetAmount(amount),
			Currency: parseBudgetCurrency(currency),
		},
		Deadline: deadline,
		Metadata: model.DurationMetadata{
			AvailableDurationDays:  days,
			AvailableDurationWeeks: rules.Round(float64(days)/7, 1),
			IsPastDeadline:         days < 0,
		},
	}
}

func normalizeDescription(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func parseBudgetAmount(value any) float64 {
	switch v := value.(type) {
	case float64:
		if isFinite(v) {
			return v
		}
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := nonNumericPattern.ReplaceAllString(v, "")
		prefix := numericPrefixPattern.FindString(cleaned)
		if prefix == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(prefix, 64)
		if err == nil && isFinite(parsed) {
			return parsed
		}
	}
	return 0
}

func parseBudgetCurrency(value any) string {
	currency, ok := value.(string)
	if !ok {
		return defaultCurrency
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return defaultCurrency
	}

	runes := []rune(currency)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

// parseDeadline devolve a data ISO (UTC) e os dias disponíveis até ela.
// Prazo inválido cai em now+30 dias com exatamente 30 dias disponíveis.
func parseDeadline(value any, now time.Time) (string, int) {
	parsed, ok := ParseDeadline(value)
	if !ok {
		return now.Add(fallbackDurationDays * day).UTC().Format(isoDateLayout), fallbackDurationDays
	}

	// em milissegundos: time.Duration não cobre prazos além de ~292 anos
	diff := float64(parsed.UnixMilli() - now.UnixMilli())
	days := int(math.Ceil(diff / dayMillis))
	return parsed.UTC().Format(isoDateLayout), days
}

// ParseDeadline interpreta uma string de data ou um timestamp em milissegundos
func ParseDeadline(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return time.Time{}, false
		}
		for _, layout := range deadlineLayouts {
			if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
				return t, true
			}
		}
	case float64:
		if isFinite(v) {
			return time.UnixMilli(int64(v)).UTC(), true
		}
	case time.Time:
		return v, !v.IsZero()
	}
	return time.Time{}, false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
