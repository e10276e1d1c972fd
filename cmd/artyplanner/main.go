package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/foxholetools/artyplanner/internal/api"
	"github.com/foxholetools/artyplanner/internal/catalog"
	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/internal/grid"
	"github.com/foxholetools/artyplanner/internal/influx"
	"github.com/foxholetools/artyplanner/internal/logging"
	intOtel "github.com/foxholetools/artyplanner/internal/otel"
	"github.com/foxholetools/artyplanner/internal/planner"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	AppName string = "artyplanner"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager = logging.NewSlogManager()

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	SessionStartTime time.Time = time.Now()

	// logOutput also receives the zerolog output of the infrastructure managers
	logOutput io.Writer = os.Stderr
)

const usageText = `artyplanner - artillery planning for Foxhole

Usage:
  artyplanner serve  [--config dir] [--listen addr]
  artyplanner calc   --weapon id --gun x,y --target x,y [--wind-dir deg --wind-strength n] [--map id] [--server url] [--json]
  artyplanner export <planID> [--format geojson|json] [--out file] [--server url]
  artyplanner upload <file> [--server url]
  artyplanner version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "serve":
		err = runServe(os.Args[2:])
	case "calc":
		err = runCalc(os.Args[2:], os.Stdout)
	case "export":
		err = runExport(os.Args[2:], os.Stdout)
	case "upload":
		err = runUpload(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	case "help", "-h", "--help":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. Defaults stay in effect when it is missing.
func loadConfig(configDir string) {
	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
		return
	}
	Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
}

// setupCLILogging keeps one-shot commands quiet on stdout.
func setupCLILogging() {
	SlogManager.Setup(os.Stderr, "WARN", nil, nil)
	Logger = SlogManager.Logger()
	logOutput = os.Stderr
}

// setupServerLogging writes to stdout and the per-run log file, plus Graylog
// when enabled.
func setupServerLogging(provider logging.ContextProvider) (closeFn func()) {
	logOutput = os.Stdout
	logFile, fileErr := logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
	if fileErr == nil {
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	var graylog io.Writer
	var graylogErr error
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"))
		if err != nil {
			graylogErr = err
		} else {
			graylog = w
		}
	}

	SlogManager.Setup(logOutput, config.GetString("logLevel"), graylog, provider)
	Logger = SlogManager.Logger()

	if fileErr != nil {
		Logger.Error("Failed to create/open log file!", "error", fileErr)
	}
	if graylogErr != nil {
		Logger.Error("Failed to connect to Graylog", "error", graylogErr, "address", config.GetString("graylog.address"))
	}

	return func() {
		if err := SlogManager.Close(); err != nil {
			Logger.Warn("Failed to close Graylog writer", "error", err)
		}
		if logFile != nil {
			_ = logFile.Close()
		}
	}
}

func componentLogger(component string) zerolog.Logger {
	return logging.NewComponentLogger(logOutput, config.GetString("logLevel"), component)
}

func gridLayout() grid.Layout {
	g := config.GetGridConfig()
	return grid.Layout{Columns: g.Columns, Rows: g.Rows, Subdivisions: g.Subdivisions}
}

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	listen := fs.String("listen", "", "listen address, overrides server.listen")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loadConfig(*configDir)
	if *listen != "" {
		viper.Set("server.listen", *listen)
	}

	var registry atomic.Pointer[planner.Registry]
	activeSessions := func() int64 {
		if r := registry.Load(); r != nil {
			return int64(r.Len())
		}
		return 0
	}

	closeLogs := setupServerLogging(func() []slog.Attr {
		return []slog.Attr{slog.Int64("sessions", activeSessions())}
	})
	defer closeLogs()
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	cat, err := catalog.Load(config.GetString("assetsDir"))
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	Logger.Info("Catalog loaded", "weapons", len(cat.Weapons("")), "maps", len(cat.Maps(false)))

	backend, err := openStorage(config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var influxManager *influx.Manager
	im := influx.NewManager(componentLogger("influx"), config.GetInfluxConfig())
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
		Logger.Info("InfluxDB disabled")
	case err != nil:
		Logger.Warn("InfluxDB unavailable, usage points will not be recorded", "error", err)
	default:
		influxManager = im
		defer func() {
			if err := im.Close(); err != nil {
				Logger.Warn("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	metrics, err := intOtel.New(activeSessions)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	svc, err := planner.NewService(planner.Dependencies{
		Catalog:    cat,
		Backend:    backend,
		LogManager: SlogManager,
		Config:     config.GetPlannerConfig(),
		Grid:       gridLayout(),
		Metrics:    metrics,
		Influx:     influxManager,
	})
	if err != nil {
		return fmt.Errorf("failed to create planner: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			Logger.Error("Failed to flush placement counts", "error", err)
		}
	}()

	serverCfg := config.GetServerConfig()
	sessions := planner.NewRegistry(svc, serverCfg.SessionTTL)
	registry.Store(sessions)
	sessions.Start()
	defer sessions.Close()

	srv := &http.Server{
		Addr: serverCfg.Listen,
		Handler: api.NewRouter(api.Dependencies{
			Service:        svc,
			Sessions:       sessions,
			Logger:         Logger,
			AllowedOrigins: serverCfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		Logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Logger.Warn("HTTP server did not shut down cleanly", "error", err)
	}
	return nil
}
