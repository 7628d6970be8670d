package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/gin-gonic/gin"
)

// Mensagens de validação da entrada do estimador
const (
	msgDescriptionRequired = "projectDescription is required and must be a string."
	msgBudgetRequired      = "budget is required and must be an object."
	msgAmountRequired      = "budget.amount is required and must be a number."
	msgCurrencyRequired    = "budget.currency is required and must be a string (ISO code)."
	msgDeadlineRequired    = "deadline is required and must be an ISO date string."
	msgDeadlineInvalid     = "deadline must be a valid ISO date string."
)

// ValidateEstimateInput verifica o formato da entrada antes da normalização.
// Retorna a lista de problemas encontrados, vazia quando a entrada é válida.
func ValidateEstimateInput(body map[string]any) []string {
	var errs []string

	if description, ok := body["projectDescription"].(string); !ok || description == "" {
		errs = append(errs, msgDescriptionRequired)
	}

	budget, ok := body["budget"].(map[string]any)
	if !ok {
		errs = append(errs, msgBudgetRequired)
	} else {
		if amount, ok := budget["amount"].(float64); !ok || math.IsNaN(amount) {
			errs = append(errs, msgAmountRequired)
		}
		if currency, ok := budget["currency"].(string); !ok || currency == "" {
			errs = append(errs, msgCurrencyRequired)
		}
	}

	deadline, ok := body["deadline"].(string)
	switch {
	case !ok || deadline == "":
		errs = append(errs, msgDeadlineRequired)
	default:
		if _, valid := service.ParseDeadline(deadline); !valid {
			errs = append(errs, msgDeadlineInvalid)
		}
	}

	return errs
}

// readJSONBody lê o corpo como objeto JSON. Corpo vazio vira objeto vazio
// e qualquer valor que não seja objeto é tratado como objeto sem campos.
func readJSONBody(c *gin.Context) (map[string]any, error) {
	if c.Request.Body == nil {
		return map[string]any{}, nil
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.ErrPayloadTooLarge
		}
		return nil, err
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, model.ErrInvalidPayload
	}

	body, ok := decoded.(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return body, nil
}

// respondBodyError traduz falhas de leitura do corpo para 400 BadRequest
func respondBodyError(c *gin.Context, err error) {
	message := "Unable to process request."
	switch {
	case errors.Is(err, model.ErrPayloadTooLarge):
		message = "Payload too large"
	case errors.Is(err, model.ErrInvalidPayload):
		message = "Invalid JSON body"
	}

	logger.FromGin(c).Warn().
		Err(err).
		Msg("Corpo da requisição rejeitado")

	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "BadRequest",
		Message: message,
	})
}

func respondValidationError(c *gin.Context, details []string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "ValidationError",
		Message: "Missing or invalid estimator input.",
		Details: details,
	})
}
