// Package ingestion polls public disaster feeds, stores new events and
// triggers automatic prioritization for severe ones.
package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-evac-priority/internal/config"
	"github.com/mr1hm/go-evac-priority/internal/metrics"
	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/ranking"
	"github.com/mr1hm/go-evac-priority/internal/repository"
	"github.com/mr1hm/go-evac-priority/internal/service"
	"github.com/mr1hm/go-evac-priority/internal/worker"
)

const feedTimeout = 15 * time.Second

// Prioritizer ranks families against a freshly stored disaster.
type Prioritizer interface {
	Prioritize(ctx context.Context, d *models.Disaster, strategy ranking.Strategy) (*models.PrioritySnapshot, error)
}

type Manager struct {
	cfg         *config.Config
	repo        repository.DisasterRepository
	prioritizer Prioritizer
	strategy    ranking.Strategy
	metrics     *metrics.Metrics
	client      *http.Client
	log         *slog.Logger
	pool        *worker.WorkerPool[*models.Disaster]
	wg          sync.WaitGroup
}

// NewManager builds a manager. prioritizer and m may be nil.
func NewManager(cfg *config.Config, repo repository.DisasterRepository, prioritizer Prioritizer, m *metrics.Metrics, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	strategy, ok := ranking.ParseStrategy(cfg.Ranking.Strategy)
	if !ok {
		strategy = ranking.StrategyTopological
	}
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		prioritizer: prioritizer,
		strategy:    strategy,
		metrics:     m,
		client:      &http.Client{Timeout: feedTimeout},
		log:         log,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewWorkerPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process, m.log)
	if m.metrics != nil {
		m.pool.OnError(func(*models.Disaster, error) { m.metrics.JobErrors.Inc() })
	}
	m.pool.Start(ctx)

	if m.cfg.Sources.USGSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, "usgs", m.cfg.Sources.USGSURL, m.cfg.Sources.USGSPollInterval)
	}

	if m.cfg.Sources.GDACSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, "gdacs", m.cfg.Sources.GDACSURL, m.cfg.Sources.GDACSPollInterval)
	}
}

// Submit queues a disaster for processing. Start must have been called.
func (m *Manager) Submit(ctx context.Context, d *models.Disaster) error {
	return m.pool.Submit(ctx, d)
}

func (m *Manager) process(ctx context.Context, d *models.Disaster) error {
	exists, err := m.repo.Exists(ctx, d.ID)
	if err != nil {
		return eris.Wrapf(err, "error checking existence of %s", d.ID)
	}
	if exists {
		return nil
	}

	if err := m.repo.Add(ctx, d); err != nil {
		// another worker stored it first
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	if m.metrics != nil {
		m.metrics.FeedDisasters.WithLabelValues(d.Source).Inc()
	}
	m.log.Info("added disaster", "id", d.ID, "type", d.Type, "source", d.Source)

	if m.prioritizer == nil || !service.ShouldPrioritize(d, m.cfg.Ranking.MinMagnitude) {
		return nil
	}
	if _, err := m.prioritizer.Prioritize(ctx, d, m.strategy); err != nil {
		return eris.Wrapf(err, "error prioritizing families for %s", d.ID)
	}
	return nil
}

func (m *Manager) runPoller(ctx context.Context, source, url string, interval time.Duration) {
	defer m.wg.Done()
	m.log.Info("starting poller", "source", source, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.poll(ctx, source, url)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("poller shutting down", "source", source)
			return
		case <-ticker.C:
			m.poll(ctx, source, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, source, url string) {
	m.log.Debug("polling", "source", source)

	var (
		disasters []*models.Disaster
		err       error
	)

	switch source {
	case "usgs":
		disasters, err = m.pollUSGS(ctx, url)
	case "gdacs":
		disasters, err = m.pollGDACS(ctx, url)
	}
	if err != nil {
		m.log.Error("poll failed", "source", source, "error", err)
		return
	}

	for _, d := range disasters {
		if err := m.pool.Submit(ctx, d); err != nil {
			m.log.Warn("dropping feed item", "source", source, "id", d.ID, "error", err)
			return
		}
	}

	m.log.Debug("poll complete", "source", source, "count", len(disasters))
}

// Stop waits for pollers to exit, then processes every disaster already
// queued before returning. Cancel the context passed to Start first.
func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	m.client.CloseIdleConnections()
	m.log.Info("ingestion manager stopped")
}

func (m *Manager) fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "error creating request")
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "error while doing request")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, eris.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}
	return resp, nil
}
