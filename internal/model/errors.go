package model

import "errors"

var (
	// ErrInvalidPayload indica corpo de requisição malformado
	ErrInvalidPayload = errors.New("invalid JSON body")

	// ErrPayloadTooLarge indica corpo acima do limite configurado
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidTemplate indica template de proposta sem placeholders ou seções obrigatórias
	ErrInvalidTemplate = errors.New("template de proposta inválido")

	// ErrUnsupportedFormat indica formato de exportação desconhecido
	ErrUnsupportedFormat = errors.New("formato de exportação não suportado")

	// ErrStageSchema indica saída de estágio fora do schema
	ErrStageSchema = errors.New("output did not match schema")
)
