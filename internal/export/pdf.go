package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

// Geometria da página e tipografia do PDF
const (
	PDFPageWidth     = 612
	PDFPageHeight    = 792
	PDFMarginX       = 50
	PDFMarginTop     = 60
	PDFFontSize      = 11
	PDFLineHeight    = 14
	PDFMaxLineLength = 92
)

// PDFMaxLines é quantas linhas cabem na única página
const PDFMaxLines = (PDFPageHeight - PDFMarginTop - PDFMarginX) / PDFLineHeight

var pdfEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

// CreatePDF gera um PDF 1.4 de página única com o texto da estimativa.
// Linhas que não cabem na página são descartadas.
func CreatePDF(est *model.EstimateResult) []byte {
	lines := WrapText(ToDocumentText(est), PDFMaxLineLength)
	if len(lines) > max(PDFMaxLines, 1) {
		lines = lines[:max(PDFMaxLines, 1)]
	}
	return buildPDF(contentStream(lines))
}

func contentStream(lines []string) string {
	startY := PDFPageHeight - PDFMarginTop

	commands := make([]string, len(lines))
	for i, line := range lines {
		escaped := pdfEscaper.Replace(line)
		if i == 0 {
			commands[i] = fmt.Sprintf("%d %d Td (%s) Tj", PDFMarginX, startY, escaped)
			continue
		}
		commands[i] = fmt.Sprintf("T* (%s) Tj", escaped)
	}

	return fmt.Sprintf("BT\n/F1 %d Tf\n%d TL\n%s\nET", PDFFontSize, PDFLineHeight, strings.Join(commands, "\n"))
}

// buildPDF monta os cinco objetos, a tabela xref e o trailer com offsets exatos
func buildPDF(stream string) []byte {
	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		fmt.Sprintf("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n",
			PDFPageWidth, PDFPageHeight),
		"4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n",
		fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = buf.Len()
		buf.WriteString(object)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefStart)
	return buf.Bytes()
}
