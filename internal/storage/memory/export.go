package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// ExportFormat is the version tag written into every export file.
const ExportFormat = 1

// PlansExport is the root JSON structure
type PlansExport struct {
	Format     int                   `json:"format"`
	Plans      []*core.PlanRecord    `json:"plans"`
	Placements []core.PlacementCount `json:"placements"`
}

// exportName returns the export file name, which is fixed so a restart finds it.
func (b *Backend) exportName() string {
	if b.cfg.CompressOutput {
		return "plans.json.gz"
	}
	return "plans.json"
}

// Export writes every plan and the placement totals to OutputDir and returns the file path.
func (b *Backend) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return "", fmt.Errorf("output directory not set")
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, b.exportName())
	tmpPath := outputPath + ".tmp"

	var err error
	if b.cfg.CompressOutput {
		err = b.writeGzipJSON(tmpPath, b.buildExport())
	} else {
		err = b.writeJSON(tmpPath, b.buildExport())
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	b.lastExportPath = outputPath
	return outputPath, nil
}

// buildExport snapshots the backend, plans ordered by creation time then ID. Caller holds mu.
func (b *Backend) buildExport() PlansExport {
	export := PlansExport{
		Format:     ExportFormat,
		Plans:      make([]*core.PlanRecord, 0, len(b.plans)),
		Placements: make([]core.PlacementCount, 0, len(b.placements)),
	}
	for _, rec := range b.plans {
		export.Plans = append(export.Plans, rec)
	}
	sort.Slice(export.Plans, func(i, j int) bool {
		pi, pj := export.Plans[i], export.Plans[j]
		if !pi.CreatedAt.Equal(pj.CreatedAt) {
			return pi.CreatedAt.Before(pj.CreatedAt)
		}
		return pi.ID < pj.ID
	})
	for k, n := range b.placements {
		export.Placements = append(export.Placements, core.PlacementCount{Kind: k.kind, WeaponID: k.weapon, Count: n})
	}
	return export
}

// importJSON loads the export file if present. Caller holds mu.
func (b *Backend) importJSON() error {
	path := filepath.Join(b.cfg.OutputDir, b.exportName())
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.cfg.CompressOutput {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read gzip export %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var data PlansExport
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	for _, rec := range data.Plans {
		if rec == nil || rec.ID == "" {
			continue
		}
		markMeters(rec)
		b.plans[rec.ID] = rec
	}
	for _, c := range data.Placements {
		b.placements[placementKey{c.Kind, c.WeaponID}] += c.Count
	}
	return nil
}

// markMeters tags decoded positions as meters; the space tag is not serialized.
func markMeters(rec *core.PlanRecord) {
	for _, list := range [][]core.Position{rec.GunPositions, rec.TargetPositions, rec.SpotterPositions} {
		for i := range list {
			list[i].Space = core.SpaceMeter
		}
	}
}

func (b *Backend) writeJSON(path string, data PlansExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data PlansExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
