package export

import (
	"bytes"
	"fmt"

	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/xuri/excelize/v2"
)

// Nomes das planilhas do XLSX
const (
	SheetSummary  = "Summary"
	SheetTasks    = "Tasks"
	SheetTimeline = "Timeline"
	SheetRisks    = "Risks"
)

// XLSXGenerator gera a planilha da estimativa
type XLSXGenerator struct{}

// NewXLSXGenerator cria um novo gerador de planilhas
func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

type sheetStyles struct {
	header int
	odd    int
	even   int
}

// Generate gera o XLSX com resumo, tasks, cronograma e riscos
func (g *XLSXGenerator) Generate(est *model.EstimateResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Renomeia a sheet padrão
	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}
	for _, name := range []string{SheetTasks, SheetTimeline, SheetRisks} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("criar sheet %s: %w", name, err)
		}
	}

	styles, err := g.newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilos: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SheetSummary, []string{"Field", "Value"}, summaryRows(est)},
		{SheetTasks, []string{"Task", "Description", "Estimated Hours", "Tier"}, taskRows(est)},
		{SheetTimeline, []string{"Date", "Milestone"}, timelineRows(est)},
		{SheetRisks, []string{"Severity", "Issue", "Mitigation"}, riskRows(est)},
	}

	for _, sheet := range sheets {
		if err := g.writeSheet(f, sheet.name, sheet.headers, sheet.rows, styles); err != nil {
			return nil, fmt.Errorf("escrever sheet %s: %w", sheet.name, err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *XLSXGenerator) newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: border("000000"),
	})
	if err != nil {
		return sheetStyles{}, err
	}

	odd, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"F2F2F2"},
			Pattern: 1,
		},
		Border: border("D9D9D9"),
	})
	if err != nil {
		return sheetStyles{}, err
	}

	even, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFFFFF"},
			Pattern: 1,
		},
		Border: border("D9D9D9"),
	})
	if err != nil {
		return sheetStyles{}, err
	}

	return sheetStyles{header: header, odd: odd, even: even}, nil
}

func border(color string) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: color, Style: 1},
		{Type: "top", Color: color, Style: 1},
		{Type: "bottom", Color: color, Style: 1},
		{Type: "right", Color: color, Style: 1},
	}
}

func (g *XLSXGenerator) writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, styles sheetStyles) error {
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for row, values := range rows {
		excelRow := row + 2 // linha 1 é header

		style := styles.even
		if row%2 == 1 {
			style = styles.odd
		}

		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	for col := 1; col <= len(headers); col++ {
		name, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, name, name, 24); err != nil {
			return err
		}
	}
	return nil
}

func summaryRows(est *model.EstimateResult) [][]any {
	in := est.NormalizedInput
	cost := est.CostEstimate
	signals := est.EstimationSignals

	return [][]any{
		{"Description", orNA(in.ProjectDescription)},
		{"Deadline", orNA(in.Deadline)},
		{"Available Days", in.Metadata.AvailableDurationDays},
		{"Budget", in.Budget.Amount},
		{"Currency", in.Budget.Currency},
		{"Subtotal", cost.Subtotal},
		{"Contingency", cost.Contingency},
		{"Total", cost.Total},
		{"Total Hours", signals.TimelineModel.TotalHours},
		{"Required Weeks", signals.TimelineModel.RequiredWeeks},
		{"Budget Status", signals.BudgetStatus.Status},
		{"Deadline Status", signals.DeadlineStatus.Status},
	}
}

func taskRows(est *model.EstimateResult) [][]any {
	sizing := est.EstimationSignals.TaskSizing
	rows := make([][]any, 0, len(est.TaskBreakdown))
	for i, task := range est.TaskBreakdown {
		tier := ""
		if i < len(sizing) {
			tier = sizing[i].Tier
		}
		rows = append(rows, []any{task.Task, task.Description, task.EstimatedHours, tier})
	}
	return rows
}

func timelineRows(est *model.EstimateResult) [][]any {
	rows := make([][]any, 0, len(est.Timeline))
	for _, milestone := range est.Timeline {
		rows = append(rows, []any{milestone.Date, milestone.Milestone})
	}
	return rows
}

func riskRows(est *model.EstimateResult) [][]any {
	rows := make([][]any, 0, len(est.RiskFlags))
	for _, risk := range est.RiskFlags {
		rows = append(rows, []any{string(risk.Severity), risk.Issue, risk.Mitigation})
	}
	return rows
}
