package export

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"golang.org/x/crypto/blake2b"
)

// Encoder gera os bytes de um formato a partir da estimativa
type Encoder func(est *model.EstimateResult, now time.Time) ([]byte, error)

// Format descreve um formato de exportação
type Format struct {
	Name        string
	Extension   string
	ContentType string
	Encode      Encoder
}

// Formatos suportados
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatXLSX = "xlsx"
)

var formats = map[string]Format{
	FormatPDF: {
		Name:        FormatPDF,
		Extension:   "pdf",
		ContentType: "application/pdf",
		Encode: func(est *model.EstimateResult, _ time.Time) ([]byte, error) {
			return CreatePDF(est), nil
		},
	},
	FormatDOCX: {
		Name:        FormatDOCX,
		Extension:   "docx",
		ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Encode: func(est *model.EstimateResult, now time.Time) ([]byte, error) {
			return CreateDOCX(est, now), nil
		},
	},
	FormatXLSX: {
		Name:        FormatXLSX,
		Extension:   "xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Encode: func(est *model.EstimateResult, _ time.Time) ([]byte, error) {
			return NewXLSXGenerator().Generate(est)
		},
	},
}

// Lookup retorna o formato pelo nome, sem diferenciar maiúsculas
func Lookup(name string) (Format, error) {
	format, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, name)
	}
	return format, nil
}

// Names lista os formatos suportados em ordem alfabética
func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filename monta o nome do anexo: project-estimate-YYYY-MM-DD.<ext>, data em UTC
func Filename(now time.Time, extension string) string {
	return fmt.Sprintf("project-estimate-%s.%s", now.UTC().Format("2006-01-02"), extension)
}

// ContentDisposition monta o cabeçalho de anexo para o arquivo
func ContentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

// Digest resume o conteúdo em 32 caracteres hex (BLAKE2b-256 truncado)
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// ETag calcula um ETag forte a partir do digest do conteúdo
func ETag(data []byte) string {
	return `"` + Digest(data) + `"`
}

// Document é um arquivo exportado pronto para envio
type Document struct {
	Format   Format
	Filename string
	Data     []byte
	ETag     string
}

// Render gera o documento do formato informado
func Render(format Format, est *model.EstimateResult, now time.Time) (*Document, error) {
	data, err := format.Encode(est, now)
	if err != nil {
		return nil, fmt.Errorf("gerar %s: %w", format.Name, err)
	}
	return &Document{
		Format:   format,
		Filename: Filename(now, format.Extension),
		Data:     data,
		ETag:     ETag(data),
	}, nil
}
