package model

// RawBudget é o orçamento como recebido do chamador.
// Amount aceita número ou string numérica; Currency aceita qualquer valor.
type RawBudget struct {
	Amount   any `json:"amount"`
	Currency any `json:"currency"`
}

// RawInput representa a entrada bruta do estimador
type RawInput struct {
	ProjectDescription any        `json:"projectDescription"`
	Budget             *RawBudget `json:"budget"`
	Deadline           any        `json:"deadline"`
}

// RawInputFromMap converte um corpo JSON decodificado em RawInput.
// Um budget que não seja objeto vira nil.
func RawInputFromMap(body map[string]any) RawInput {
	raw := RawInput{
		ProjectDescription: body["projectDescription"],
		Deadline:           body["deadline"],
	}
	if budget, ok := body["budget"].(map[string]any); ok {
		raw.Budget = &RawBudget{
			Amount:   budget["amount"],
			Currency: budget["currency"],
		}
	}
	return raw
}

// EstimateResponse é a resposta de POST /estimate: a entrada ecoada mais o agregado
type EstimateResponse struct {
	Input RawInput `json:"input"`
	*EstimateResult
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// StageEvent é enviado pelo stream de progresso ao fim de cada estágio
type StageEvent struct {
	Type     string `json:"type"`
	Stage    string `json:"stage,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
