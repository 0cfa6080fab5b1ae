package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium/webassembly"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/ivanvanderbyl/pdfgrid"
)

func main() {
	cmd := &cli.Command{
		Name:  "pdfgrid",
		Usage: "Annotate tables on PDF pages and extract their cells",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level when no config file is given",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "tokens",
				Usage: "Print the text tokens of a page as JSON",
				Flags: []cli.Flag{
					inputFlag(),
					&cli.IntFlag{Name: "page", Usage: "Page number (1-based)", Value: 1},
					&cli.FloatFlag{Name: "scale", Usage: "Render scale", Value: 1},
				},
				Action: printTokens,
			},
			{
				Name:  "render",
				Usage: "Render a page to PNG",
				Flags: []cli.Flag{
					inputFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output PNG path", Required: true},
					&cli.IntFlag{Name: "page", Usage: "Page number (1-based)", Value: 1},
					&cli.FloatFlag{Name: "scale", Usage: "Requested render scale", Value: 1},
					&cli.FloatFlag{Name: "fit-width", Usage: "Cap the scale so the page fits this many pixels"},
				},
				Action: renderPage,
			},
			{
				Name:  "annotate",
				Usage: "Replay an annotation script and export the extracted tables",
				Flags: []cli.Flag{
					inputFlag(),
					&cli.StringFlag{Name: "script", Aliases: []string{"s"}, Usage: "YAML annotation script", Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (default: stdout)"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv or json", Value: "csv"},
				},
				Action: annotate,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "Input PDF file path",
		Required: true,
	}
}

func loadConfig(cmd *cli.Command) (pdfgrid.Config, error) {
	if path := cmd.String("config"); path != "" {
		return pdfgrid.LoadConfig(path)
	}

	config := pdfgrid.DefaultConfig()
	config.Log.Level = cmd.String("log-level")
	config.Log.Format = "pretty"
	config.Logger = pdfgrid.NewLogger(config.Log, os.Stderr)
	return config, nil
}

// withDocument initialises pdfium, opens the input PDF and calls fn with it.
func withDocument(cmd *cli.Command, fn func(pdfgrid.Config, *pdfgrid.Document) error) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise pdfium: %w", err)
	}
	defer pool.Close()

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		return fmt.Errorf("failed to get pdfium instance: %w", err)
	}

	doc, err := pdfgrid.NewRenderer(instance, config).OpenFile(cmd.String("input"))
	if err != nil {
		return err
	}
	defer doc.Close()

	config.Logger.Info().Int("pages", doc.PageCount()).Msg("document opened")
	return fn(config, doc)
}

func printTokens(ctx context.Context, cmd *cli.Command) error {
	return withDocument(cmd, func(_ pdfgrid.Config, doc *pdfgrid.Document) error {
		content, err := doc.PageContent(ctx, cmd.Int("page"), cmd.Float("scale"))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(content)
	})
}

func renderPage(_ context.Context, cmd *cli.Command) error {
	return withDocument(cmd, func(config pdfgrid.Config, doc *pdfgrid.Document) error {
		page := cmd.Int("page")

		viewport := pdfgrid.NewViewport(config.Zoom)
		scale := viewport.SetScale(cmd.Float("scale"))
		if fit := cmd.Float("fit-width"); fit > 0 {
			unit, err := doc.PageSize(page, 1)
			if err != nil {
				return err
			}
			scale = viewport.EffectiveScale(fit, unit.Width)
		}

		img, err := doc.RenderImage(page, scale)
		if err != nil {
			return err
		}

		f, err := os.Create(cmd.String("output"))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
		config.Logger.Info().Int("page", page).Float64("scale", scale).Msg("page rendered")
		return nil
	})
}

func annotate(ctx context.Context, cmd *cli.Command) error {
	script, err := pdfgrid.LoadScript(cmd.String("script"))
	if err != nil {
		return err
	}

	return withDocument(cmd, func(config pdfgrid.Config, doc *pdfgrid.Document) error {
		session := pdfgrid.NewSession(config)
		cancel := session.Subscribe(func(ev pdfgrid.Event) {
			if ev.Kind == pdfgrid.EventRegionCreated {
				config.Logger.Info().Str("region", ev.RegionID).Int("page", ev.Page).Msg("table created")
			}
		})
		defer cancel()

		if err := pdfgrid.NewReplayer(session, doc, config.Zoom).Run(ctx, script); err != nil {
			return err
		}

		grids := session.ExtractAll()
		config.Logger.Info().Int("tables", len(grids)).Msg("tables extracted")

		out := io.Writer(os.Stdout)
		if path := cmd.String("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		switch cmd.String("format") {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(grids)
		case "csv":
			return writeCSV(out, grids, config.Logger)
		default:
			return fmt.Errorf("unknown format %q", cmd.String("format"))
		}
	})
}

// writeCSV writes each table's rows as CSV records with a blank line between tables.
func writeCSV(w io.Writer, grids []pdfgrid.Grid, logger zerolog.Logger) error {
	for i, grid := range grids {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(grid.Cells); err != nil {
			return fmt.Errorf("failed to write table %d: %w", i+1, err)
		}
		logger.Debug().Str("region", grid.RegionID).Int("rows", grid.Rows).Int("cols", grid.Cols).Msg("table written")
	}
	return nil
}
