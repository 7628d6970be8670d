package export

import (
	"strings"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/model"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentXMLHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    `

const documentXMLFooter = `
    <w:sectPr>
      <w:pgSz w:w="12240" w:h="15840"/>
      <w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>
    </w:sectPr>
  </w:body>
</w:document>`

// Partes do pacote DOCX, na ordem em que são gravadas
const (
	DocxContentTypesPart = "[Content_Types].xml"
	DocxRelsPart         = "_rels/.rels"
	DocxDocumentPart     = "word/document.xml"
)

const emptyParagraph = "<w:p><w:r><w:t xml:space=\"preserve\">\u00a0</w:t></w:r></w:p>"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// CreateDOCX gera um DOCX mínimo com um parágrafo por linha do texto da estimativa
func CreateDOCX(est *model.EstimateResult, now time.Time) []byte {
	document := documentXMLHeader + wordParagraphs(ToDocumentText(est)) + documentXMLFooter

	return CreateZip([]ZipEntry{
		{Name: DocxContentTypesPart, Content: []byte(contentTypesXML)},
		{Name: DocxRelsPart, Content: []byte(relsXML)},
		{Name: DocxDocumentPart, Content: []byte(document)},
	}, now)
}

// wordParagraphs converte cada linha em um parágrafo; linha vazia vira espaço não quebrável
func wordParagraphs(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(NormalizeText(text), "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString(emptyParagraph)
			continue
		}
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		b.WriteString(xmlEscaper.Replace(line))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	return b.String()
}
