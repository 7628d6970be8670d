package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/gabriel-vasile/mimetype"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var exportTime = time.Date(2026, 10, 18, 13, 45, 31, 0, time.UTC)

func goldenEstimate(t *testing.T) *model.EstimateResult {
	t.Helper()
	svc := service.NewEstimatorService(service.WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	return svc.CreateEstimate(context.Background(), model.RawInput{
		ProjectDescription: "Create a B2B onboarding workflow with admin review, notifications, analytics, and third-party CRM integration.",
		Budget:             &model.RawBudget{Amount: 18000.0, Currency: "USD"},
		Deadline:           "2030-06-15",
	})
}

func TestDocumentTextLayout(t *testing.T) {
	text := ToDocumentText(goldenEstimate(t))
	lines := strings.Split(text, "\n")

	assert.Equal(t, "Project Estimate Export", lines[0])
	assert.Equal(t, "Project Overview", lines[2])
	assert.Equal(t, "Deadline: 2030-06-15", lines[4])
	assert.Equal(t, "Budget: 18000 USD", lines[5])
	assert.Contains(t, text, "- Requirements & Planning (7h): Clarify acceptance criteria and implementation details.")
	assert.Contains(t, text, "- 2030-06-15: QA & Handoff")
	assert.Contains(t, text, "Total: 17820 USD")
	assert.Contains(t, text, "- [MEDIUM] External dependencies | Mitigation: ")
	assert.Contains(t, text, "\nProposal\n# Project Proposal")
}

func TestDocumentTextForEmptyEstimate(t *testing.T) {
	text := ToDocumentText(&model.EstimateResult{})

	assert.Contains(t, text, "Description: N/A")
	assert.Contains(t, text, "Deadline: N/A")
	assert.Contains(t, text, "Budget: N/A")
	assert.Contains(t, text, "Task Breakdown\n- N/A")
	assert.Contains(t, text, "Timeline\n- N/A")
	assert.Contains(t, text, "Subtotal: N/A\nContingency: N/A\nTotal: N/A")
	assert.Contains(t, text, "Risk Flags\n- N/A")
	assert.True(t, strings.HasSuffix(text, "Proposal\nN/A"))
}

func TestDocumentTextPrefersMarkdownProposal(t *testing.T) {
	est := &model.EstimateResult{ProposalPlainText: "plain", ProposalDraft: "draft"}
	assert.True(t, strings.HasSuffix(ToDocumentText(est), "Proposal\nplain"))

	est.ProposalPlainText = ""
	assert.True(t, strings.HasSuffix(ToDocumentText(est), "Proposal\ndraft"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb\nc\td", NormalizeText("a\r\nb\rc\td"))
	assert.Equal(t, "caf? ?", NormalizeText("café €"))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, WrapText("one two three", 9))
	assert.Equal(t, []string{"", "x"}, WrapText("   \nx", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, WrapText("abcdefghij", 4))
	assert.Equal(t, []string{"ab", "cdef", "ghij"}, WrapText("ab cdefghij", 4))
	assert.Equal(t, []string{"a b"}, WrapText("  a    b  ", 10))
}

var xrefEntryPattern = regexp.MustCompile(`(\d{10}) 00000 n `)

func TestPDFStructure(t *testing.T) {
	data := CreatePDF(goldenEstimate(t))
	text := string(data)

	require.True(t, strings.HasPrefix(text, "%PDF-1.4\n"))
	require.True(t, strings.HasSuffix(text, "%%EOF\n"))

	xrefStart := strings.Index(text, "xref\n")
	require.Greater(t, xrefStart, 0)

	startxref := regexp.MustCompile(`startxref\n(\d+)\n`).FindStringSubmatch(text)
	require.Len(t, startxref, 2)
	assert.Equal(t, strconv.Itoa(xrefStart), startxref[1])
	assert.Contains(t, text, "trailer\n<< /Size 6 /Root 1 0 R >>")

	entries := xrefEntryPattern.FindAllStringSubmatch(text[xrefStart:], -1)
	require.Len(t, entries, 5)
	for i, entry := range entries {
		offset, err := strconv.Atoi(entry[1])
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text[offset:], fmt.Sprintf("%d 0 obj\n", i+1)), "object %d offset", i+1)
	}

	assert.Contains(t, text, "/MediaBox [0 0 612 792]")
	assert.Contains(t, text, "/BaseFont /Helvetica")
	assert.Contains(t, text, "BT\n/F1 11 Tf\n14 TL\n50 732 Td (Project Estimate Export) Tj\n")
}

func TestPDFStreamLengthMatches(t *testing.T) {
	text := string(CreatePDF(goldenEstimate(t)))

	match := regexp.MustCompile(`<< /Length (\d+) >>\nstream\n`).FindStringSubmatchIndex(text)
	require.NotNil(t, match)
	length, err := strconv.Atoi(text[match[2]:match[3]])
	require.NoError(t, err)

	body := text[match[1]:]
	assert.True(t, strings.HasPrefix(body[length:], "\nendstream\n"))
}

func TestPDFTruncatesToOnePage(t *testing.T) {
	est := goldenEstimate(t)
	for i := range 100 {
		est.TaskBreakdown = append(est.TaskBreakdown, model.Task{Task: fmt.Sprintf("Extra %d", i), Description: "More work.", EstimatedHours: 1})
	}

	text := string(CreatePDF(est))
	assert.Equal(t, 48, PDFMaxLines)
	assert.Equal(t, PDFMaxLines, strings.Count(text, ") Tj"))
}

func TestPDFEscapesSpecialCharacters(t *testing.T) {
	est := &model.EstimateResult{NormalizedInput: model.NormalizedInput{ProjectDescription: `Port (legacy) C:\app`}}
	text := string(CreatePDF(est))
	assert.Contains(t, text, `(Description: Port \(legacy\) C:\\app) Tj`)
}

func TestPDFIsReadable(t *testing.T) {
	data := CreatePDF(goldenEstimate(t))

	assert.True(t, mimetype.Detect(data).Is("application/pdf"))

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 1, reader.NumPage())

	content, err := reader.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, content, "Project Estimate Export")
}

func TestDOCXOpensWithStandardReader(t *testing.T) {
	data := CreateDOCX(goldenEstimate(t), exportTime)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, reader.File, 3)

	names := []string{reader.File[0].Name, reader.File[1].Name, reader.File[2].Name}
	assert.Equal(t, []string{DocxContentTypesPart, DocxRelsPart, DocxDocumentPart}, names)

	for _, file := range reader.File {
		assert.Equal(t, zip.Store, file.Method)
		rc, err := file.Open()
		require.NoError(t, err)
		// reading to EOF verifies the stored CRC-32
		content, err := io.ReadAll(rc)
		require.NoError(t, err, file.Name)
		require.NoError(t, rc.Close())
		assert.Equal(t, crc32.ChecksumIEEE(content), file.CRC32)
		assert.Equal(t, exportTime.Truncate(2*time.Second), file.Modified.UTC())
	}

	document := readZipFile(t, reader, DocxDocumentPart)
	assert.Contains(t, document, `<w:t xml:space="preserve">Project Estimate Export</w:t>`)
	assert.Contains(t, document, `Requirements &amp; Planning`)
	assert.Contains(t, document, "<w:t xml:space=\"preserve\">\u00a0</w:t>")
	assert.Contains(t, document, `<w:pgSz w:w="12240" w:h="15840"/>`)
}

func TestDOCXEndOfCentralDirectory(t *testing.T) {
	data := CreateDOCX(goldenEstimate(t), exportTime)
	le := binary.LittleEndian

	end := data[len(data)-22:]
	require.Equal(t, uint32(zipEndRecordSignature), le.Uint32(end[0:]))
	assert.Equal(t, uint16(3), le.Uint16(end[8:]))
	assert.Equal(t, uint16(3), le.Uint16(end[10:]))

	size := le.Uint32(end[12:])
	offset := le.Uint32(end[16:])
	assert.Equal(t, uint32(len(data)-22), offset+size)
	assert.Equal(t, uint32(zipCentralHeaderSignature), le.Uint32(data[offset:]))

	// every central record points at its local header
	cursor := offset
	for range 3 {
		nameLen := uint32(le.Uint16(data[cursor+28:]))
		local := le.Uint32(data[cursor+42:])
		assert.Equal(t, uint32(zipLocalHeaderSignature), le.Uint32(data[local:]))
		assert.Equal(t, le.Uint32(data[cursor+16:]), le.Uint32(data[local+14:]))
		cursor += 46 + nameLen
	}
	assert.Equal(t, offset+size, cursor)
}

func TestDOCXEscapesXML(t *testing.T) {
	est := &model.EstimateResult{NormalizedInput: model.NormalizedInput{ProjectDescription: `<b>"Tom" & 'Jerry'</b>`}}
	data := CreateDOCX(est, exportTime)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	document := readZipFile(t, reader, DocxDocumentPart)
	assert.Contains(t, document, "Description: &lt;b&gt;&quot;Tom&quot; &amp; &apos;Jerry&apos;&lt;/b&gt;")
}

func TestDOCXMimeType(t *testing.T) {
	data := CreateDOCX(goldenEstimate(t), exportTime)
	detected := mimetype.Detect(data)

	zipped := false
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			zipped = true
		}
	}
	assert.True(t, zipped, "detected %s", detected.String())
}

func TestXLSXSheets(t *testing.T) {
	data, err := NewXLSXGenerator().Generate(goldenEstimate(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetTasks, SheetTimeline, SheetRisks}, f.GetSheetList())

	rows, err := f.GetRows(SheetTasks)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Task", "Description", "Estimated Hours", "Tier"}, rows[0])
	assert.Equal(t, "Development", rows[2][0])
	assert.Equal(t, "L", rows[2][3])

	total, err := f.GetCellValue(SheetSummary, "B9")
	require.NoError(t, err)
	assert.Equal(t, "17820", total)

	risks, err := f.GetRows(SheetRisks)
	require.NoError(t, err)
	assert.Len(t, risks, 3)
}

func TestDOSDateTime(t *testing.T) {
	dosTime, dosDate := DOSDateTime(exportTime)
	assert.Equal(t, uint16(13<<11|45<<5|15), dosTime)
	assert.Equal(t, uint16(46<<9|10<<5|18), dosDate)

	_, early := DOSDateTime(time.Date(1975, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, uint16(0<<9|3<<5|4), early)
}

func TestFormats(t *testing.T) {
	format, err := Lookup("PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", format.ContentType)

	_, err = Lookup("odt")
	assert.True(t, errors.Is(err, model.ErrUnsupportedFormat))

	assert.Equal(t, []string{FormatDOCX, FormatPDF, FormatXLSX}, Names())
	assert.Equal(t, "project-estimate-2026-10-18.docx", Filename(exportTime, "docx"))
	assert.Equal(t, `attachment; filename="project-estimate-2026-10-18.pdf"`, ContentDisposition(Filename(exportTime, "pdf")))
}

func TestRenderDocument(t *testing.T) {
	est := goldenEstimate(t)
	for _, name := range Names() {
		format, err := Lookup(name)
		require.NoError(t, err)

		doc, err := Render(format, est, exportTime)
		require.NoError(t, err, name)
		assert.NotEmpty(t, doc.Data)
		assert.Equal(t, "project-estimate-2026-10-18."+format.Extension, doc.Filename)
		assert.Equal(t, ETag(doc.Data), doc.ETag)
	}
}

func TestETag(t *testing.T) {
	a := ETag([]byte("a"))
	assert.Equal(t, a, ETag([]byte("a")))
	assert.NotEqual(t, a, ETag([]byte("b")))
	assert.Len(t, a, 34)
}

// TestExportProperties checks the hand-built encoders against standard readers.
func TestExportProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("CRC32 matches the IEEE checksum", prop.ForAll(
		func(data []byte) bool {
			return CRC32(data) == crc32.ChecksumIEEE(data)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("wrapped lines never exceed the width", prop.ForAll(
		func(text string, width int) bool {
			for _, line := range WrapText(text, width) {
				if len(line) > width {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.IntRange(1, 100),
	))

	properties.Property("zip archives open with archive/zip", prop.ForAll(
		func(contents []string) bool {
			entries := make([]ZipEntry, len(contents))
			for i, content := range contents {
				entries[i] = ZipEntry{Name: fmt.Sprintf("part-%d.txt", i), Content: []byte(content)}
			}
			data := CreateZip(entries, exportTime)

			reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil || len(reader.File) != len(entries) {
				return false
			}
			for i, file := range reader.File {
				rc, err := file.Open()
				if err != nil {
					return false
				}
				got, err := io.ReadAll(rc)
				rc.Close()
				if err != nil || string(got) != contents[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func readZipFile(t *testing.T, reader *zip.Reader, name string) string {
	t.Helper()
	rc, err := reader.Open(name)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(content)
}
