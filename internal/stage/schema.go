package stage

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Schema é um JSON Schema compilado de um estágio
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema compila um JSON Schema
func CompileSchema(source string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile([]byte(source))
	if err != nil {
		return nil, fmt.Errorf("compilar schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompileSchema compila ou entra em pânico; uso restrito a schemas fixos
func MustCompileSchema(source string) *Schema {
	s, err := CompileSchema(source)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate valida um documento JSON já decodificado
func (s *Schema) Validate(document any) error {
	if document == nil {
		return fmt.Errorf("documento vazio")
	}
	result := s.compiled.Validate(document)
	if result.Valid {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}

// Schemas dos estágios
var (
	TaskBreakdownSchema = MustCompileSchema(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["task", "description", "estimatedHours"],
			"properties": {
				"task": {"type": "string"},
				"description": {"type": "string"},
				"estimatedHours": {"type": "number"}
			}
		}
	}`)

	TimelineSchema = MustCompileSchema(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["milestone", "date"],
			"properties": {
				"milestone": {"type": "string"},
				"date": {"type": "string"}
			}
		}
	}`)

	CostEstimateSchema = MustCompileSchema(`{
		"type": "object",
		"required": ["subtotal", "contingency", "total", "currency"],
		"properties": {
			"subtotal": {"type": "number"},
			"contingency": {"type": "number"},
			"total": {"type": "number"},
			"currency": {"type": "string"}
		}
	}`)

	RiskFlagsSchema = MustCompileSchema(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["severity", "issue", "mitigation"],
			"properties": {
				"severity": {"enum": ["low", "medium", "high"]},
				"issue": {"type": "string"},
				"mitigation": {"type": "string"}
			}
		}
	}`)
)
