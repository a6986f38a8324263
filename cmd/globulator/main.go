package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/globulab/globulator/internal/batch"
	"github.com/globulab/globulator/internal/config"
	"github.com/globulab/globulator/internal/linker"
	"github.com/globulab/globulator/internal/server"
	"github.com/globulab/globulator/internal/tables"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("cell-size") {
		cfg.Linker.CellSize = c.Float64("cell-size")
	}
	if c.IsSet("search-radius-factor") {
		cfg.Linker.SearchRadiusFactor = c.Float64("search-radius-factor")
	}
	if c.IsSet("min-area-ratio") {
		cfg.Linker.MinAreaRatio = c.Float64("min-area-ratio")
	}
	if c.IsSet("input") {
		cfg.InputDir = c.String("input")
	}
	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("render") {
		cfg.RenderMaps = c.Bool("render")
	}

	return cfg, cfg.Validate()
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	// Logging goes to stderr; stdout carries results (and the MCP protocol
	// in serve mode).
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	app := &cli.App{
		Name:    "globulator",
		Usage:   "Link crescent particles to globules in microscopy detection tables",
		Version: fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file path",
			},
			&cli.Float64Flag{
				Name:  "cell-size",
				Usage: "Spatial index cell edge length",
				Value: linker.DefaultCellSize,
			},
			&cli.Float64Flag{
				Name:  "search-radius-factor",
				Usage: "Search radius as a multiple of the crescent's derived radius",
				Value: linker.DefaultSearchRadiusFactor,
			},
			&cli.Float64Flag{
				Name:  "min-area-ratio",
				Usage: "Minimum globule area as a fraction of the crescent area",
				Value: linker.DefaultMinAreaRatio,
			},
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Directory holding the detection tables",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for the result tables",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Maximum images processed concurrently",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "Render a validation map per image",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "link",
				Usage:     "Link one image's detection tables",
				ArgsUsage: "<globule-table> <crescent-table> [contamination-table]",
				Action:    runLink,
			},
			{
				Name:   "batch",
				Usage:  "Link every table pair in the input directory",
				Action: runBatch,
			},
			{
				Name:   "watch",
				Usage:  "Link table pairs as a detector drops them into the input directory",
				Action: runWatch,
			},
			{
				Name:   "summarize",
				Usage:  "Aggregate per-image statistics tables in the output directory",
				Action: runSummarize,
			},
			{
				Name:   "serve",
				Usage:  "Run the MCP tool server over stdin/stdout",
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runLink(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("link needs a globule table and a crescent table")
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	pair := batch.Pair{
		Name:         imageName(c.Args().Get(0)),
		GlobulePath:  c.Args().Get(0),
		CrescentPath: c.Args().Get(1),
	}
	if c.NArg() > 2 {
		pair.ContaminationPath = c.Args().Get(2)
	}

	res, err := batch.ProcessPair(pair, cfg)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(res)
}

func runBatch(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := batch.Run(ctx, cfg)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(report)
}

func runWatch(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := batch.Watch(ctx, cfg); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runSummarize(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	stats, err := tables.Summarize(cfg.OutputDir)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(stats)
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	log.Printf("globulator MCP server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return server.New(cfg).Run()
}

// imageName strips the table prefix and extension from a path.
func imageName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.TrimPrefix(name, tables.PrefixGlobuleTable)
	return strings.TrimPrefix(name, tables.PrefixCrescentTable)
}
