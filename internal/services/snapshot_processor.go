package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gestornet/internal/backup"
	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/storage"
)

const (
	snapshotPrefix = "gestornet-snapshot-"
	snapshotSuffix = ".json"
	snapshotLayout = "20060102T150405Z"
)

// SnapshotConfig holds configuration for the snapshot processor
type SnapshotConfig struct {
	// Dir receives the snapshot files
	Dir string

	// Frequency selects the schedule (default: daily)
	Frequency Frequency

	// Retain is how many snapshots to keep; 0 keeps all (default: 14)
	Retain int

	// CheckInterval is how often the schedule is checked (default: 1h)
	CheckInterval time.Duration
}

// DefaultSnapshotConfig returns sensible defaults
func DefaultSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Dir:           "./data/backups",
		Frequency:     Daily,
		Retain:        14,
		CheckInterval: time.Hour,
	}
}

// SnapshotProcessor writes backup documents to disk on a schedule and prunes
// old ones. The time of the last snapshot is read back from the directory,
// so restarts do not cause an extra snapshot.
type SnapshotProcessor struct {
	store    storage.Store
	schedule ScheduleChecker
	config   SnapshotConfig
	metrics  *metrics.Metrics
	logger   *log.Logger
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSnapshotProcessor(store storage.Store, config SnapshotConfig, m *metrics.Metrics, logger *log.Logger) (*SnapshotProcessor, error) {
	if config.Frequency == "" {
		config.Frequency = Daily
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultSnapshotConfig().CheckInterval
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	schedule, err := GetScheduleChecker(config.Frequency)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SnapshotProcessor{
		store:    store,
		schedule: schedule,
		config:   config,
		metrics:  m,
		logger:   logger.WithComponent(log.ComponentBackup),
		now:      time.Now,
	}, nil
}

// Start begins the schedule loop. Returns an error if already running.
func (p *SnapshotProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("snapshot processor is already running")
	}
	if err := os.MkdirAll(p.config.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	p.logger.InfoContext(ctx, "Snapshot processor started",
		"dir", p.config.Dir,
		"frequency", p.config.Frequency,
		"retain", p.config.Retain,
		"check_interval", p.config.CheckInterval)
	return nil
}

// Stop waits for an in-flight snapshot to finish.
func (p *SnapshotProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Snapshot processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Snapshot processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SnapshotProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SnapshotProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.CheckInterval)
	defer ticker.Stop()

	// Check immediately on startup
	p.tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *SnapshotProcessor) tick(ctx context.Context) {
	if _, _, err := p.RunIfDue(ctx, p.now()); err != nil {
		p.logger.ErrorContext(ctx, "Snapshot failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
	}
}

// RunIfDue takes a snapshot when the schedule says so. It returns the file
// written, if any.
func (p *SnapshotProcessor) RunIfDue(ctx context.Context, now time.Time) (string, bool, error) {
	last, err := p.LastSnapshot()
	if err != nil {
		return "", false, err
	}
	if !p.schedule.IsDue(last, now) {
		p.logger.DebugContext(ctx, "Snapshot not due", "last", last)
		return "", false, nil
	}
	path, err := p.Snapshot(ctx, now)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Snapshot exports the store to a new file and prunes old snapshots.
func (p *SnapshotProcessor) Snapshot(ctx context.Context, now time.Time) (string, error) {
	path, err := p.write(ctx, now)
	p.metrics.IncSnapshot(err)
	if err != nil {
		return "", err
	}

	pruned, err := p.prune()
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to prune snapshots", log.FieldError, err)
	}
	p.logger.InfoContext(ctx, "Snapshot written",
		"path", path,
		"pruned", pruned)
	return path, nil
}

func (p *SnapshotProcessor) write(ctx context.Context, now time.Time) (string, error) {
	doc, err := ExportStore(ctx, p.store, now)
	if err != nil {
		return "", err
	}
	data, err := backup.Encode(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(p.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(p.config.Dir, ".snapshot-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close snapshot: %w", err)
	}

	path := filepath.Join(p.config.Dir, snapshotName(now))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename snapshot: %w", err)
	}
	return path, nil
}

// LastSnapshot returns the time of the newest snapshot in the directory,
// or the zero time if there is none.
func (p *SnapshotProcessor) LastSnapshot() (time.Time, error) {
	snaps, err := p.list()
	if err != nil {
		return time.Time{}, err
	}
	if len(snaps) == 0 {
		return time.Time{}, nil
	}
	return snaps[len(snaps)-1].at, nil
}

type snapshotFile struct {
	path string
	at   time.Time
}

// list returns snapshots oldest first. Unrelated files are ignored.
func (p *SnapshotProcessor) list() ([]snapshotFile, error) {
	entries, err := os.ReadDir(p.config.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}
	var out []snapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		at, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		out = append(out, snapshotFile{path: filepath.Join(p.config.Dir, e.Name()), at: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out, nil
}

func (p *SnapshotProcessor) prune() (int, error) {
	if p.config.Retain <= 0 {
		return 0, nil
	}
	snaps, err := p.list()
	if err != nil {
		return 0, err
	}
	excess := len(snaps) - p.config.Retain
	removed := 0
	for i := 0; i < excess; i++ {
		if err := os.Remove(snaps[i].path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", snaps[i].path, err)
		}
		removed++
	}
	return removed, nil
}

func snapshotName(t time.Time) string {
	return snapshotPrefix + t.UTC().Format(snapshotLayout) + snapshotSuffix
}

func parseSnapshotName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
	t, err := time.Parse(snapshotLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
