package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/foxholetools/artyplanner/internal/api"
	"github.com/foxholetools/artyplanner/internal/catalog"
	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/internal/planner"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/internal/storage/memory"
	"github.com/foxholetools/artyplanner/pkg/core"

	"github.com/spf13/pflag"
)

const requestTimeout = 30 * time.Second

// parsePosition reads "x,y" in meters.
func parsePosition(s string) (core.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return core.Position{}, fmt.Errorf("position %q must be x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return core.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return core.Position{}, fmt.Errorf("position %q: %w", s, err)
	}
	return core.M(x, y), nil
}

// newLocalService builds a planner over backend for one-shot commands.
func newLocalService(backend storage.Backend) (*planner.Service, error) {
	cat, err := catalog.Load(config.GetString("assetsDir"))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return planner.NewService(planner.Dependencies{
		Catalog:    cat,
		Backend:    backend,
		LogManager: SlogManager,
		Config:     config.GetPlannerConfig(),
		Grid:       gridLayout(),
	})
}

func runCalc(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("calc", pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	weapon := fs.String("weapon", "", "weapon id, e.g. storm-cannon")
	gun := fs.String("gun", "", "gun position in meters, x,y")
	target := fs.String("target", "", "target position in meters, x,y")
	windDir := fs.Float64("wind-dir", 0, "direction the wind blows from, degrees")
	windStrength := fs.Int("wind-strength", 0, "wind strength 0-5")
	mapID := fs.String("map", "", "optional map id to bounds-check positions")
	server := fs.String("server", "", "ask a running server instead of computing locally")
	asJSON := fs.Bool("json", false, "print the solution as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	setupCLILogging()
	loadConfig(*configDir)

	req := planner.CalcRequest{
		WeaponID: *weapon,
		Wind:     core.WindState{Direction: *windDir, Strength: *windStrength},
		MapID:    *mapID,
	}
	var err error
	if req.Gun, err = parsePosition(*gun); err != nil {
		return fmt.Errorf("--gun: %w", err)
	}
	if req.Target, err = parsePosition(*target); err != nil {
		return fmt.Errorf("--target: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var sol core.FiringSolution
	if *server != "" {
		sol, err = api.NewClient(*server).Calculate(ctx, req)
	} else {
		var svc *planner.Service
		svc, err = newLocalService(memory.New(config.MemoryConfig{}))
		if err != nil {
			return err
		}
		defer svc.Close()
		sol, err = svc.Calculate(ctx, req)
	}
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sol)
	}
	printSolution(out, *weapon, sol)
	return nil
}

func printSolution(out io.Writer, weaponID string, sol core.FiringSolution) {
	rangeNote := "in range"
	if !sol.InRange {
		rangeNote = "OUT OF RANGE"
	}
	fmt.Fprintf(out, "Weapon:    %s\n", weaponID)
	fmt.Fprintf(out, "Azimuth:   %.1f°\n", sol.Azimuth)
	fmt.Fprintf(out, "Distance:  %.1f m (%s)\n", sol.Distance, rangeNote)
	fmt.Fprintf(out, "Accuracy:  ±%.1f m\n", sol.AccuracyRadius)
	if w := sol.Wind; w != nil {
		fmt.Fprintf(out, "Wind aim:  %.1f° at %.1f m (drift %.1f m toward %.1f°)\n",
			w.Azimuth, w.Distance, w.DriftMeters, w.PushDirection)
	}
}

func runExport(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	format := fs.String("format", "geojson", "geojson or json")
	outPath := fs.String("out", "", "write to this file instead of stdout")
	server := fs.String("server", "", "fetch from a running server instead of local storage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("export needs exactly one plan ID")
	}
	planID := fs.Arg(0)
	if *format != "geojson" && *format != "json" {
		return fmt.Errorf("unknown format %q", *format)
	}

	setupCLILogging()
	loadConfig(*configDir)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var (
		body []byte
		err  error
	)
	if *server != "" {
		body, err = exportRemote(ctx, api.NewClient(*server), planID, *format)
	} else {
		body, err = exportLocal(ctx, planID, *format)
	}
	if err != nil {
		return err
	}

	if *outPath == "" {
		_, err = stdout.Write(append(body, '\n'))
		return err
	}
	if err := os.WriteFile(*outPath, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *outPath, err)
	}
	Logger.Info("Plan exported", "plan", planID, "path", *outPath)
	return nil
}

func exportRemote(ctx context.Context, c *api.Client, planID, format string) ([]byte, error) {
	if format == "geojson" {
		return c.PlanGeoJSON(ctx, planID)
	}
	rec, err := c.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rec, "", "  ")
}

func exportLocal(ctx context.Context, planID, format string) (body []byte, err error) {
	backend, err := openStorage(config.GetStorageConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, backend.Close())
	}()

	svc, err := newLocalService(backend)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	if format == "geojson" {
		fc, err := svc.PlanGeoJSON(ctx, planID)
		if err != nil {
			return nil, err
		}
		return fc.MarshalJSON()
	}
	rec, err := svc.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rec, "", "  ")
}

func runUpload(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	server := fs.String("server", "http://localhost:3000", "planner server URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("upload needs exactly one plan file")
	}
	setupCLILogging()

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read plan file: %w", err)
	}
	var rec core.PlanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse plan file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c := api.NewClient(*server)
	if err := c.Healthcheck(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}
	saved, err := c.CreatePlan(ctx, &rec)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Fprintln(out, saved.ID)
	return nil
}
