package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/metrics"
	"github.com/factoryos/console-sync/internal/utils"
)

// AlertsHealthService is the gRPC health service name tracking the alert feed.
const AlertsHealthService = "factoryos.console.alerts"

// ErrPageNotFound is returned for unknown or unmounted page ids.
var ErrPageNotFound = errors.New("page not found")

// PageInfo describes a mounted page.
type PageInfo struct {
	ID        string       `json:"id"`
	Kind      console.Kind `json:"kind"`
	MountedAt time.Time    `json:"mountedAt"`
}

type mountedPage struct {
	info PageInfo
	page console.Page
}

// ConsoleService owns the mounted page sessions.
type ConsoleService struct {
	logger    *slog.Logger
	backend   console.Backend
	timings   console.Timings
	health    *health.Server
	latencies *utils.LatencyTracker

	mu    sync.Mutex
	pages map[string]*mountedPage

	healthMu sync.Mutex
	feeds    map[string]error
}

// NewConsoleService constructs the service facade.
func NewConsoleService(logger *slog.Logger, backend console.Backend, timings console.Timings) *ConsoleService {
	if logger == nil {
		logger = slog.Default()
	}
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(AlertsHealthService, healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
	return &ConsoleService{
		logger:    logger,
		backend:   backend,
		timings:   timings,
		health:    healthSrv,
		latencies: utils.NewLatencyTracker(1024),
		pages:     make(map[string]*mountedPage),
		feeds:     make(map[string]error),
	}
}

// Health exposes the gRPC health server fed by the alert feeds.
func (s *ConsoleService) Health() *health.Server { return s.health }

// Mount creates and mounts a page of kind, returning its session id.
func (s *ConsoleService) Mount(ctx context.Context, kind console.Kind) (PageInfo, console.Page, error) {
	page, err := console.NewPage(kind, s.backend, s.timings, s.logger)
	if err != nil {
		return PageInfo{}, nil, err
	}
	info := PageInfo{ID: uuid.NewString(), Kind: kind, MountedAt: time.Now().UTC()}
	if compliance, ok := page.(*console.CompliancePage); ok {
		compliance.OnRefresh(func(err error) { s.reportFeed(info.ID, err) })
	}

	if err := s.track(ctx, "mount_"+string(kind), page.Mount); err != nil {
		page.Unmount()
		s.forgetFeed(info.ID)
		return PageInfo{}, nil, fmt.Errorf("mount %s page: %w", kind, err)
	}

	s.mu.Lock()
	s.pages[info.ID] = &mountedPage{info: info, page: page}
	s.mu.Unlock()
	metrics.PageMounted(string(kind), 1)
	s.logger.Info("page mounted", slog.String("page_id", info.ID), slog.String("kind", string(kind)))
	return info, page, nil
}

// Unmount tears down the page with id.
func (s *ConsoleService) Unmount(id string) error {
	s.mu.Lock()
	entry, ok := s.pages[id]
	delete(s.pages, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrPageNotFound)
	}

	entry.page.Unmount()
	s.forgetFeed(id)
	metrics.PageMounted(string(entry.info.Kind), -1)
	s.logger.Info("page unmounted", slog.String("page_id", id), slog.String("kind", string(entry.info.Kind)))
	return nil
}

// Get returns the page with id.
func (s *ConsoleService) Get(id string) (console.Page, PageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pages[id]
	if !ok {
		return nil, PageInfo{}, fmt.Errorf("%s: %w", id, ErrPageNotFound)
	}
	return entry.page, entry.info, nil
}

// List returns the mounted pages, oldest first.
func (s *ConsoleService) List() []PageInfo {
	s.mu.Lock()
	infos := make([]PageInfo, 0, len(s.pages))
	for _, entry := range s.pages {
		infos = append(infos, entry.info)
	}
	s.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].MountedAt.Equal(infos[j].MountedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].MountedAt.Before(infos[j].MountedAt)
	})
	return infos
}

// Close unmounts every page.
func (s *ConsoleService) Close() {
	for _, info := range s.List() {
		_ = s.Unmount(info.ID)
	}
	s.health.Shutdown()
}

// Chat returns the chat page with id.
func (s *ConsoleService) Chat(id string) (*console.ChatPage, error) { return pageAs[*console.ChatPage](s, id) }

// Compliance returns the compliance page with id.
func (s *ConsoleService) Compliance(id string) (*console.CompliancePage, error) {
	return pageAs[*console.CompliancePage](s, id)
}

// Dashboard returns the dashboard page with id.
func (s *ConsoleService) Dashboard(id string) (*console.DashboardPage, error) {
	return pageAs[*console.DashboardPage](s, id)
}

// Resources returns the resource page with id.
func (s *ConsoleService) Resources(id string) (*console.ResourcePage, error) {
	return pageAs[*console.ResourcePage](s, id)
}

// Options returns the filter loader of a page that has one.
func (s *ConsoleService) Options(id string) (*console.OptionLoader, error) {
	page, _, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	withOptions, ok := page.(interface{ Options() *console.OptionLoader })
	if !ok {
		return nil, fmt.Errorf("%s page has no filters: %w", page.Kind(), console.ErrInvalidInput)
	}
	return withOptions.Options(), nil
}

func pageAs[T console.Page](s *ConsoleService, id string) (T, error) {
	var zero T
	page, info, err := s.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := page.(T)
	if !ok {
		return zero, fmt.Errorf("page %s is a %s page: %w", id, info.Kind, console.ErrInvalidInput)
	}
	return typed, nil
}

// Do runs a page operation, recording its latency under op.
func (s *ConsoleService) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return s.track(ctx, op, fn)
}

func (s *ConsoleService) track(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	s.latencies.Observe(op, duration)
	if err != nil {
		s.logger.Debug("operation failed", slog.String("op", op), slog.Duration("duration", duration), slog.Any("error", err))
	}
	if count := s.latencies.Count(op); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(op, 95)
		s.logger.Info("operation latency", slog.String("op", op), slog.Duration("p95", p95), slog.Int("samples", count))
	}
	return err
}

// Latencies exposes per-operation latency samples.
func (s *ConsoleService) Latencies() *utils.LatencyTracker { return s.latencies }

// reportFeed records the latest refresh outcome of one page's alert feed.
func (s *ConsoleService) reportFeed(pageID string, err error) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.feeds[pageID] = err
	s.publishFeedHealthLocked()
}

func (s *ConsoleService) forgetFeed(pageID string) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	if _, ok := s.feeds[pageID]; !ok {
		return
	}
	delete(s.feeds, pageID)
	s.publishFeedHealthLocked()
}

// publishFeedHealthLocked reports serving while any page's latest poll succeeded, and
// unknown when no page has polled. Callers hold s.healthMu.
func (s *ConsoleService) publishFeedHealthLocked() {
	status := healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	for _, err := range s.feeds {
		if err == nil {
			status = healthpb.HealthCheckResponse_SERVING
			break
		}
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(AlertsHealthService, status)
}
