package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/demodata/internal/config"
	"github.com/ehr/demodata/internal/domain/resident"
	"github.com/ehr/demodata/internal/domain/terminology"
	"github.com/ehr/demodata/internal/platform/db"
	"github.com/ehr/demodata/internal/platform/export"
	"github.com/ehr/demodata/internal/platform/hipaa"
	"github.com/ehr/demodata/internal/platform/middleware"
	"github.com/ehr/demodata/internal/platform/reporting"
	"github.com/ehr/demodata/internal/platform/sandbox"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "demo-data",
		Short:         "Synthetic assisted-living demo data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("env-file", ".env", "Path to the .env file")

	cmd.AddCommand(generateCmd())
	cmd.AddCommand(terminologyCmd())
	cmd.AddCommand(encryptCmd())
	cmd.AddCommand(loadCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}

// app is the state every command starts from.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// setup loads config, applies the command's flag overrides and builds the
// logger. Errors are logged before they reach cobra.
func setup(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	logger := newLogger(cfg, cmd.ErrOrStderr())
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	str := func(name string, dst *string) {
		if f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
	str("residents", &cfg.ResidentsFile)
	str("output", &cfg.OutputDir)
	str("format", &cfg.OutputFormat)
	str("now", &cfg.Now)
	str("start", &cfg.StartDate)
	str("intermediary", &cfg.IntermediaryDate)
	str("port", &cfg.Port)
	str("database-url", &cfg.DatabaseURL)
	str("log-level", &cfg.LogLevel)
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("staff") {
		cfg.StaffCount, _ = f.GetInt("staff")
	}
	if f.Changed("expand-activities") {
		cfg.ExpandActivities, _ = f.GetBool("expand-activities")
	}
}

func addGenerationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("residents", "", "Resident roster JSON (RESIDENTS_FILE)")
	f.Int64("seed", 0, "Random seed, 0 picks one (SEED)")
	f.String("now", "", "Run boundary, YYYY-MM-DD or RFC 3339 (NOW)")
	f.String("start", "", "Start date (START_DATE)")
	f.String("intermediary", "", "Intermediary date (INTERMEDIARY_DATE)")
	f.Int("staff", 0, "Staff pool size (STAFF_COUNT)")
	f.Bool("expand-activities", false, "Expand care-plan activities into tasks (EXPAND_ACTIVITIES)")
	f.String("log-level", "", "Log level (LOG_LEVEL)")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate per-category demo data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ledger, _ := cmd.Flags().GetString("ledger")
			return a.generate(cmd.OutOrStdout(), ledger)
		},
	}
	addGenerationFlags(cmd)
	cmd.Flags().String("output", "", "Output directory (OUTPUT_DIR)")
	cmd.Flags().String("format", "", "Output format json|ndjson (OUTPUT_FORMAT)")
	cmd.Flags().String("ledger", "", "Also write the financials ledger workbook to this .xlsx path")
	return cmd
}

func (a *app) generate(out io.Writer, ledger string) error {
	roster, err := resident.Load(a.cfg.ResidentsFile)
	if err != nil {
		a.logger.Error().Err(err).Str("path", a.cfg.ResidentsFile).Msg("failed to load residents")
		return err
	}
	genCfg, err := a.cfg.Generation(time.Now())
	if err != nil {
		return err
	}
	terms := terminology.LoadSet(a.cfg.TerminologyPaths(), a.logger)

	gen := sandbox.NewGenerator(genCfg, terminology.DefaultCatalog(), terms, a.logger)
	c, summary := gen.Generate(roster)

	format, err := export.ParseFormat(a.cfg.OutputFormat)
	if err != nil {
		return err
	}
	if _, err := export.NewWriter(a.cfg.OutputDir, format, a.logger).WriteAll(c); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if ledger != "" {
		if err := export.WriteLedger(ledger, c.Financials); err != nil {
			a.logger.Error().Err(err).Str("path", ledger).Msg("failed to write ledger")
			return err
		}
		a.logger.Info().Str("path", ledger).Int("transactions", len(c.Financials)).Msg("ledger written")
	}
	return writeJSON(out, summary)
}

// ---------------------------------------------------------------------------
// terminology
// ---------------------------------------------------------------------------

func terminologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminology [table query]",
		Short: "List terminology tables or search one",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 || len(args) > 2 {
				return errors.New("expected no arguments or a table and a query")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			svc := terminology.NewService(terminology.LoadSet(a.cfg.TerminologyPaths(), a.logger))

			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), svc.Tables())
			}
			entries, err := svc.Search(cmd.Context(), args[0], args[1], limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum entries to print")
	return cmd
}

// ---------------------------------------------------------------------------
// encrypt
// ---------------------------------------------------------------------------

func encryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal data-plain.json files into data.json with ENCRYPTION_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.encrypt(cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("output", "", "Data directory (OUTPUT_DIR)")
	return cmd
}

func (a *app) encrypt(out io.Writer) error {
	key, err := a.cfg.Key()
	if err != nil {
		return err
	}
	env, err := hipaa.NewEnvelope(key)
	if err != nil {
		return err
	}

	names := make([]string, len(sandbox.Categories))
	for i, cat := range sandbox.Categories {
		names[i] = string(cat)
	}
	results, err := env.EncryptDir(a.cfg.OutputDir, names, a.logger)
	if err != nil {
		return err
	}
	return writeJSON(out, results)
}

// ---------------------------------------------------------------------------
// load
// ---------------------------------------------------------------------------

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Upsert generated data files into PostgreSQL fixture tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, db.PoolConfig{
				URL:      a.cfg.DatabaseURL,
				MaxConns: a.cfg.DBMaxConns,
				MinConns: a.cfg.DBMinConns,
			})
			if err != nil {
				a.logger.Error().Err(err).Msg("failed to connect to database")
				return err
			}
			defer pool.Close()
			a.logger.Info().Msg("connected to database")

			return a.load(ctx, cmd.OutOrStdout(), pool)
		},
	}
	cmd.Flags().String("output", "", "Data directory (OUTPUT_DIR)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (DATABASE_URL)")
	return cmd
}

func (a *app) load(ctx context.Context, out io.Writer, conn db.Beginner) error {
	c, err := export.ReadDir(a.cfg.OutputDir, a.logger)
	if err != nil {
		return err
	}
	results, err := db.NewLoader(conn, a.logger).LoadAll(ctx, c)
	if err != nil {
		return err
	}
	return writeJSON(out, results)
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the demo data preview server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	addGenerationFlags(cmd)
	cmd.Flags().String("port", "", "Listen port (PORT)")
	return cmd
}

func (a *app) newServer() (*echo.Echo, error) {
	genCfg, err := a.cfg.Generation(time.Now())
	if err != nil {
		return nil, err
	}
	terms := terminology.LoadSet(a.cfg.TerminologyPaths(), a.logger)
	residentsFile := a.cfg.ResidentsFile
	roster := func() (resident.Roster, error) { return resident.Load(residentsFile) }

	seed := sandbox.NewSeedHandler(genCfg, terminology.DefaultCatalog(), terms, roster, a.logger)
	if _, err := seed.Generate(sandbox.GenerateRequest{}); err != nil {
		a.logger.Warn().Err(err).Msg("initial generation failed, POST /api/v1/sandbox/generate to retry")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.NoStore())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiV1 := e.Group("/api/v1")
	seed.RegisterRoutes(apiV1.Group("/sandbox"))
	terminology.NewHandler(terminology.NewService(terms)).RegisterRoutes(apiV1)
	reporting.NewHandler(seed.Collections).RegisterRoutes(apiV1)

	return e, nil
}

func (a *app) serve(ctx context.Context) error {
	e, err := a.newServer()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			a.logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
