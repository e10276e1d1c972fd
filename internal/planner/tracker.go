package planner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foxholetools/artyplanner/internal/influx"
	intOtel "github.com/foxholetools/artyplanner/internal/otel"
	"github.com/foxholetools/artyplanner/internal/queue"
	"github.com/foxholetools/artyplanner/internal/storage"
	"github.com/foxholetools/artyplanner/pkg/core"
)

const (
	defaultFlushInterval = 10 * time.Second
	placementQueueSize   = 10000
)

// Tracker batches placement counters and writes them to storage on an interval.
type Tracker struct {
	queue   *queue.Queue[core.PlacementCount]
	backend storage.Backend
	influx  *influx.Manager
	metrics *intOtel.Metrics
	log     *slog.Logger
	now     func() time.Time

	interval    time.Duration
	lastDropped uint64
	flushMu     sync.Mutex
	stopChan    chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func newTracker(backend storage.Backend, im *influx.Manager, metrics *intOtel.Metrics, log *slog.Logger, interval time.Duration, now func() time.Time) *Tracker {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Tracker{
		queue:    queue.NewBounded[core.PlacementCount](placementQueueSize),
		backend:  backend,
		influx:   im,
		metrics:  metrics,
		log:      log,
		now:      now,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Track queues one placement.
func (t *Tracker) Track(ctx context.Context, kind core.MarkerKind, weaponID string) {
	t.queue.Push(core.PlacementCount{Kind: kind, WeaponID: weaponID, Count: 1})
	t.metrics.Placement(ctx, kind, 1)
}

// Pending returns the number of queued, unflushed placements.
func (t *Tracker) Pending() int {
	return t.queue.Len()
}

// Flush writes queued placements to storage. On failure they are requeued.
func (t *Tracker) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if t.queue.Empty() {
		return nil
	}
	counts := storage.MergePlacements(t.queue.GetAndEmpty())
	if err := t.backend.RecordPlacements(ctx, counts); err != nil {
		t.queue.Requeue(counts...)
		return err
	}

	if t.influx != nil {
		at := t.now()
		for _, c := range counts {
			if err := t.influx.WritePoint(influx.PlacementPoint(c, at)); err != nil {
				t.log.Debug("Failed to write placement point", "error", err)
				break
			}
		}
	}
	t.log.Debug("Flushed placements", "rows", len(counts))
	return nil
}

func (t *Tracker) start() {
	t.wg.Add(1)
	go t.flushLoop()
}

func (t *Tracker) flushLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.Flush(context.Background()); err != nil {
				t.log.Error("Failed to flush placements", "error", err, "pending", t.queue.Len())
			}
			if d := t.queue.Dropped(); d > t.lastDropped {
				t.log.Warn("Placement queue overflowed", "dropped", d-t.lastDropped)
				t.lastDropped = d
			}
		case <-t.stopChan:
			return
		}
	}
}

// Close stops the flush loop and writes what is left.
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
		err = t.Flush(context.Background())
		if err != nil {
			err = errors.Join(errors.New("final placement flush failed"), err)
		}
	})
	return err
}
