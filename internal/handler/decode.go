package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

// decodeEstimate lê uma estimativa recebida em JSON sem rejeitá-la por tipos errados.
// Cada campo é lido isoladamente: número em string vira número e o que não puder
// ser lido fica vazio, aparecendo como N/A no documento.
func decodeEstimate(data map[string]any) *model.EstimateResult {
	est := &model.EstimateResult{
		ID:                asText(data["id"]),
		NormalizedInput:   decodeSummary(data),
		TaskBreakdown:     decodeTasks(data["taskBreakdown"]),
		Timeline:          decodeTimeline(data["timeline"]),
		CostEstimate:      decodeCost(data["costEstimate"]),
		RiskFlags:         decodeRisks(data["riskFlags"]),
		ProposalDraft:     asText(data["proposalDraft"]),
		ProposalMarkdown:  asText(data["proposalMarkdown"]),
		ProposalPlainText: asText(data["proposalPlainText"]),
	}
	decodeInto(data["estimationSignals"], &est.EstimationSignals)
	decodeInto(data["fallbackReasons"], &est.FallbackReasons)
	return est
}

// decodeSummary usa normalizedInput, depois input, depois o próprio objeto
func decodeSummary(data map[string]any) model.NormalizedInput {
	summary := data
	for _, key := range []string{"normalizedInput", "input"} {
		if candidate, ok := data[key].(map[string]any); ok {
			summary = candidate
			break
		}
	}

	in := model.NormalizedInput{
		ProjectDescription: asText(summary["projectDescription"]),
		Deadline:           asText(summary["deadline"]),
	}
	if budget, ok := summary["budget"].(map[string]any); ok {
		in.Budget = model.Budget{
			Amount:   asNumber(budget["amount"]),
			Currency: asText(budget["currency"]),
		}
	}
	decodeInto(summary["metadata"], &in.Metadata)
	return in
}

func decodeTasks(value any) []model.Task {
	items := asObjects(value)
	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, model.Task{
			Task:           asText(item["task"]),
			Description:    asText(item["description"]),
			EstimatedHours: asNumber(item["estimatedHours"]),
		})
	}
	return tasks
}

func decodeTimeline(value any) []model.Milestone {
	items := asObjects(value)
	timeline := make([]model.Milestone, 0, len(items))
	for _, item := range items {
		timeline = append(timeline, model.Milestone{
			Milestone: asText(item["milestone"]),
			Date:      asText(item["date"]),
		})
	}
	return timeline
}

func decodeRisks(value any) []model.RiskFlag {
	items := asObjects(value)
	risks := make([]model.RiskFlag, 0, len(items))
	for _, item := range items {
		risks = append(risks, model.RiskFlag{
			Severity:   model.Severity(strings.ToLower(asText(item["severity"]))),
			Issue:      asText(item["issue"]),
			Mitigation: asText(item["mitigation"]),
		})
	}
	return risks
}

func decodeCost(value any) model.CostEstimate {
	cost, ok := value.(map[string]any)
	if !ok {
		return model.CostEstimate{}
	}
	return model.CostEstimate{
		Subtotal:       asNumber(cost["subtotal"]),
		Contingency:    asNumber(cost["contingency"]),
		Total:          asNumber(cost["total"]),
		Currency:       asText(cost["currency"]),
		FallbackReason: asText(cost["_fallbackReason"]),
	}
}

// decodeInto decodifica campos auxiliares; falhas deixam o destino vazio
func decodeInto(value any, target any) {
	if value == nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = json.Unmarshal(encoded, target)
}

// asObjects devolve os itens objeto de uma lista, ignorando os demais
func asObjects(value any) []map[string]any {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	objects := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if object, ok := item.(map[string]any); ok {
			objects = append(objects, object)
		}
	}
	return objects
}

func asText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func asNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
	}
	return 0
}
