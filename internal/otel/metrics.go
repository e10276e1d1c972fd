// Package otel registers the planner's OpenTelemetry instruments on the
// global meter provider. Without a configured provider they are no-ops.
package otel

import (
	"context"
	"fmt"

	"github.com/foxholetools/artyplanner/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/foxholetools/artyplanner/internal/planner"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the planner counters.
type Metrics struct {
	calculations metric.Int64Counter
	plansSaved   metric.Int64Counter
	placements   metric.Int64Counter
	edits        metric.Int64Counter
	sessions     metric.Int64ObservableGauge
}

// New creates the instruments. activeSessions, when non-nil, backs the
// session gauge.
func New(activeSessions func() int64) (*Metrics, error) {
	return NewWithMeter(meter(), activeSessions)
}

// NewWithMeter is New with an explicit meter.
func NewWithMeter(m metric.Meter, activeSessions func() int64) (*Metrics, error) {
	var (
		mt  Metrics
		err error
	)

	mt.calculations, err = m.Int64Counter(
		"planner.calculations",
		metric.WithDescription("Firing solutions computed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating calculations counter: %w", err)
	}

	mt.plansSaved, err = m.Int64Counter(
		"planner.plans.saved",
		metric.WithDescription("Plans written to storage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plans counter: %w", err)
	}

	mt.placements, err = m.Int64Counter(
		"planner.placements",
		metric.WithDescription("Markers placed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating placements counter: %w", err)
	}

	mt.edits, err = m.Int64Counter(
		"planner.session.edits",
		metric.WithDescription("Edits applied to sessions, including undo and redo"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating edits counter: %w", err)
	}

	if activeSessions != nil {
		mt.sessions, err = m.Int64ObservableGauge(
			"planner.sessions.active",
			metric.WithDescription("Open editing sessions"),
		)
		if err != nil {
			return nil, fmt.Errorf("creating sessions gauge: %w", err)
		}
		_, err = m.RegisterCallback(
			func(ctx context.Context, o metric.Observer) error {
				o.ObserveInt64(mt.sessions, activeSessions())
				return nil
			},
			mt.sessions,
		)
		if err != nil {
			return nil, fmt.Errorf("registering sessions callback: %w", err)
		}
	}

	return &mt, nil
}

// Calculation counts one firing solution.
func (m *Metrics) Calculation(ctx context.Context, weaponID string, inRange bool) {
	m.calculations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("weapon", weaponID),
		attribute.Bool("in_range", inRange),
	))
}

// PlanSaved counts one stored plan.
func (m *Metrics) PlanSaved(ctx context.Context) {
	m.plansSaved.Add(ctx, 1)
}

// Placement counts n placements of a marker kind.
func (m *Metrics) Placement(ctx context.Context, kind core.MarkerKind, n int64) {
	m.placements.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind.String())))
}

// Edit counts one session edit, labelled by operation name.
func (m *Metrics) Edit(ctx context.Context, op string) {
	m.edits.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
