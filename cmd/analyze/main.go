package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"seo-opportunity/internal/constants"
	fxmodules "seo-opportunity/internal/fx"
	"seo-opportunity/internal/logger"
	"seo-opportunity/internal/service"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func main() {
	app := &cli.App{
		Name:  "analyze",
		Usage: "estimate the SEO opportunity of a business website",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run a full analysis and store the report",
				Action: analyzeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "business website"},
					&cli.StringFlag{Name: "type", Usage: "business type, e.g. roofing", Required: true},
					&cli.StringFlag{Name: "location", Value: "United States"},
					&cli.StringFlag{Name: "scope", Value: "local", Usage: "local or national"},
					&cli.StringSliceFlag{Name: "competitor", Usage: "competitor website (repeatable)"},
					&cli.StringFlag{Name: "keywords", Usage: "comma separated seed keywords"},
					&cli.Float64Flag{Name: "customer-value", Value: 0},
				},
			},
			{
				Name:      "report",
				Usage:     "print a stored report",
				ArgsUsage: "<id>",
				Action:    reportAction,
			},
			{
				Name:   "reports",
				Usage:  "list recent reports",
				Action: listAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withAnalysis starts the dependency graph without the HTTP server, hands the
// analysis service to fn and stops the graph afterwards.
func withAnalysis(c *cli.Context, fn func(ctx context.Context, svc *service.AnalysisService) error) error {
	var svc *service.AnalysisService
	app := fx.New(
		fxmodules.Module,
		fx.Decorate(func(zerolog.Logger) zerolog.Logger { return logger.Console() }),
		fx.NopLogger,
		fx.Populate(&svc),
	)

	startCtx, cancel := context.WithTimeout(c.Context, constants.ExternalAPITimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(c.Context, svc)
}

func analyzeAction(c *cli.Context) error {
	req := service.AnalyzeRequest{
		BusinessURL:    c.String("url"),
		BusinessType:   c.String("type"),
		Location:       c.String("location"),
		Scope:          c.String("scope"),
		CompetitorURLs: c.StringSlice("competitor"),
		SeedKeywords:   splitList(c.String("keywords")),
		CustomerValue:  c.Float64("customer-value"),
	}
	return withAnalysis(c, func(ctx context.Context, svc *service.AnalysisService) error {
		res, err := svc.Analyze(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
}

func reportAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("report id required", 2)
	}
	return withAnalysis(c, func(ctx context.Context, svc *service.AnalysisService) error {
		stored, err := svc.GetReport(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(stored)
	})
}

func listAction(c *cli.Context) error {
	return withAnalysis(c, func(ctx context.Context, svc *service.AnalysisService) error {
		reports, err := svc.ListReports(ctx, c.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(reports)
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
