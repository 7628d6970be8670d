// estimate gera uma estimativa de projeto pela linha de comando.
//
// Uso:
//
//	estimate --description "..." --budget 18000 --deadline 2030-06-15 [--format table|json|yaml|markdown]
//	estimate ... --pdf proposta.pdf --docx proposta.docx --xlsx proposta.xlsx
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/export"
	"github.com/cleberrangel/project-estimator-api/internal/handler"
	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/proposal"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/urfave/cli/v2"
)

var version = "dev"

const sourceCLI = "cli"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "estimate",
		Usage:   "Generate a project estimate, proposal and export files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "description",
				Aliases:  []string{"d"},
				Usage:    "Project description",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "budget",
				Aliases:  []string{"b"},
				Usage:    "Budget amount",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "currency",
				Value: "USD",
				Usage: "Budget currency (ISO code)",
			},
			&cli.StringFlag{
				Name:     "deadline",
				Usage:    "Delivery deadline (ISO date)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   formatTable,
				Usage:   "Output format (table, json, yaml, markdown)",
			},
			&cli.StringFlag{
				Name:  "pdf",
				Usage: "Write the PDF export to this file",
			},
			&cli.StringFlag{
				Name:  "docx",
				Usage: "Write the DOCX export to this file",
			},
			&cli.StringFlag{
				Name:  "xlsx",
				Usage: "Write the XLSX workbook to this file",
			},
			&cli.StringFlag{
				Name:    "template",
				Usage:   "Proposal markdown template",
				EnvVars: []string{"PROPOSAL_TEMPLATE_PATH"},
			},
			&cli.BoolFlag{
				Name:    "simulate-malformed",
				Usage:   "Force malformed output on the first task breakdown attempt",
				EnvVars: []string{"SIMULATE_MALFORMED_MODEL_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	logger.InitWithWriter(c.String("log-level"), false, c.App.ErrWriter)

	format := strings.ToLower(c.String("format"))
	if !isOutputFormat(format) {
		return fmt.Errorf("unknown format %q (use table, json, yaml or markdown)", format)
	}

	opts := []service.Option{
		service.WithSource(sourceCLI),
		service.WithSimulatedMalformedOutput(c.Bool("simulate-malformed")),
	}
	if path := c.String("template"); path != "" {
		template, err := proposal.LoadTemplate(path)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithTemplate(template))
	}

	body := map[string]any{
		"projectDescription": c.String("description"),
		"budget": map[string]any{
			"amount":   c.Float64("budget"),
			"currency": c.String("currency"),
		},
		"deadline": c.String("deadline"),
	}
	if details := handler.ValidateEstimateInput(body); len(details) > 0 {
		return errors.New(strings.Join(details, " "))
	}

	est := service.NewEstimatorService(opts...).CreateEstimate(context.Background(), model.RawInputFromMap(body))

	now := time.Now()
	for _, name := range export.Names() {
		path := c.String(name)
		if path == "" {
			continue
		}
		if err := writeExport(name, path, est, now); err != nil {
			return err
		}
		fmt.Fprintf(c.App.ErrWriter, "Wrote %s\n", path)
	}

	return writeOutput(c.App.Writer, format, est)
}

func writeExport(name, path string, est *model.EstimateResult, now time.Time) error {
	format, err := export.Lookup(name)
	if err != nil {
		return err
	}
	doc, err := export.Render(format, est, now)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
