// Package influx ships planner usage points to InfluxDB, or to a gzipped
// line-protocol backup file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/foxholetools/artyplanner/internal/config"
	"github.com/foxholetools/artyplanner/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Measurement names.
const (
	MeasurementPlacement   = "placement"
	MeasurementCalculation = "calculation"
	MeasurementPlanSaved   = "plan_saved"
)

// retentionSeconds keeps usage points for 90 days.
const retentionSeconds = 60 * 60 * 24 * 90

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
		cfg:     cfg,
	}
}

// Connect establishes a connection to InfluxDB. If the server does not answer,
// points go to the backup file instead and Connect still succeeds.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL,
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)
	if err == nil && running {
		err = m.setupOrganizationAndBucket(ctx)
		if err != nil {
			return err
		}
		m.createWriter()
		m.IsValid = true
		m.Logger.Info().Str("url", m.cfg.URL).Msg("InfluxDB client initialized")
		return nil
	}

	m.Logger.Warn().Err(err).Str("backupPath", m.cfg.BackupPath).
		Msg("Failed to initialize InfluxDB client, writing to backup file")
	return m.openBackup()
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	if m.cfg.BackupPath == "" {
		return fmt.Errorf("influx unreachable and no backup path configured")
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.BackupPath), 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}
	file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// createWriter creates the async write API and logs its errors.
func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()

	m.Logger.Debug().Str("bucket", m.cfg.Bucket).Msg("InfluxDB writer created")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.BackupWriter != nil {
		err = errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
		m.BackupWriter, m.backupFile = nil, nil
	}
	return err
}

// PlacementPoint records c.Count placements of one marker kind and weapon.
func PlacementPoint(c core.PlacementCount, at time.Time) *influxdb2_write.Point {
	tags := map[string]string{"kind": c.Kind.String()}
	if c.WeaponID != "" {
		tags["weapon"] = c.WeaponID
	}
	return influxdb2.NewPoint(MeasurementPlacement, tags,
		map[string]interface{}{"count": c.Count}, at)
}

// CalculationPoint records one firing solution request.
func CalculationPoint(weaponID string, sol core.FiringSolution, wind core.WindState, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementCalculation,
		map[string]string{"weapon": weaponID},
		map[string]interface{}{
			"distance":     sol.Distance,
			"inRange":      sol.InRange,
			"windStrength": wind.Strength,
		}, at)
}

// PlanSavedPoint records a saved plan's size.
func PlanSavedPoint(rec *core.PlanRecord, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementPlanSaved,
		map[string]string{"map": rec.MapID},
		map[string]interface{}{
			"guns":     len(rec.GunPositions),
			"targets":  len(rec.TargetPositions),
			"spotters": len(rec.SpotterPositions),
		}, at)
}
