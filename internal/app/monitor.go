package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/config"
	"github.com/samvad-hq/zosmf-probe/internal/domain"
	"github.com/samvad-hq/zosmf-probe/internal/logger"
	"github.com/samvad-hq/zosmf-probe/internal/storage"
	"github.com/samvad-hq/zosmf-probe/pkg/profiles"
	"github.com/samvad-hq/zosmf-probe/pkg/publishers"
	"github.com/samvad-hq/zosmf-probe/pkg/session"
	"github.com/samvad-hq/zosmf-probe/pkg/zosmf"
)

// StatusChecker performs one z/OSMF status check.
type StatusChecker interface {
	GetZosmfInfo(ctx context.Context, sess *session.Session) (zosmf.StatusResponse, error)
}

// Monitor periodically checks every configured profile, journaling each outcome and
// publishing it to the configured sinks.
type Monitor struct {
	profiles []profiles.Profile
	checker  StatusChecker
	fanout   *publishers.Fanout
	store    storage.Store
	interval time.Duration
	log      logger.Logger
}

// NewMonitor builds a monitor runtime from config files.
func NewMonitor(ctx context.Context, cfg *config.Config, checker StatusChecker, log logger.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if checker == nil {
		return nil, fmt.Errorf("status checker must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	profileReg, err := profiles.LoadRegistry(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles registry: %w", err)
	}
	all := profileReg.All()
	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, p.Name)
	}
	log.InfoObj("profiles registry loaded", "profiles_meta", map[string]any{
		"count": len(names),
		"names": names,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
		MaxHistory:      cfg.StorageMaxHistory,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Monitor{
		profiles: all,
		checker:  checker,
		fanout:   fanout,
		store:    store,
		interval: cfg.CheckInterval,
		log:      log,
	}, nil
}

// buildFanout loads the publishers file. An empty path yields a fanout with no sinks.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	path := cfg.PublishersFile
	if path == "" {
		log.InfoObj("no publishers file configured; outcomes are only journaled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultBuilders(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients, publishers.WithRetry(cfg.PublishAttempts, cfg.PublishRetryDelay)), nil
}

// Run checks all profiles immediately and then on every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil || m.checker == nil {
		return fmt.Errorf("monitor is not initialized")
	}
	defer m.close()

	if len(m.profiles) == 0 {
		m.log.WarnObj("no profiles configured; monitor idle", "profiles_count", 0)
		<-ctx.Done()
		return nil
	}

	m.log.InfoObj("monitor loop starting", "monitor_state", map[string]any{
		"profiles_count":   len(m.profiles),
		"publishers_count": m.fanout.Size(),
		"check_interval":   m.interval.String(),
	})

	m.runOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("monitor loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *Monitor) runOnce(ctx context.Context) {
	start := time.Now()
	outcomes, err := m.CheckOnce(ctx)
	healthy := 0
	for _, o := range outcomes {
		if o.OK {
			healthy++
		}
	}
	if err != nil {
		m.log.ErrorObj("check round reported errors", "error", err.Error())
	}
	m.log.InfoObj("check round completed", "check_round", map[string]any{
		"profiles_count": len(outcomes),
		"healthy_count":  healthy,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
}

// CheckOnce checks every profile sequentially with one status call each. A failed
// check is an outcome, not an error; the returned error joins journal and publish
// failures.
func (m *Monitor) CheckOnce(ctx context.Context) ([]domain.CheckOutcome, error) {
	outcomes := make([]domain.CheckOutcome, 0, len(m.profiles))
	var errs []error
	for _, p := range m.profiles {
		if ctx.Err() != nil {
			break
		}
		outcome := m.check(ctx, p)
		// An outcome cut short by shutdown says nothing about the profile.
		if ctx.Err() != nil {
			break
		}
		outcomes = append(outcomes, outcome)

		if err := m.store.Record(outcome); err != nil {
			errs = append(errs, fmt.Errorf("journal %s: %w", p.Name, err))
		}
		if _, err := m.fanout.Publish(ctx, publishers.NewEvent(outcome)); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", p.Name, err))
		}
	}
	return outcomes, errors.Join(errs...)
}

func (m *Monitor) check(ctx context.Context, p profiles.Profile) domain.CheckOutcome {
	outcome := domain.CheckOutcome{
		Profile:  p.Name,
		Hostname: p.Host,
		Port:     p.Port,
	}

	start := time.Now()
	sess, err := p.Session()
	if err == nil {
		outcome.Port = sess.Port
		var resp zosmf.StatusResponse
		resp, err = m.checker.GetZosmfInfo(ctx, sess)
		outcome.ZosmfVersion = resp.Version()
	}
	outcome.ElapsedMS = time.Since(start).Milliseconds()
	outcome.CheckedAt = time.Now().UTC()

	if err == nil {
		outcome.OK = true
		m.log.DebugObj("profile healthy", "check_outcome", outcome)
		return outcome
	}

	var ce *zosmf.ClassifiedError
	if errors.As(err, &ce) {
		outcome.ErrorKind = ce.Kind.String()
		outcome.StatusCode = ce.StatusCode
	} else {
		outcome.ErrorKind = zosmf.KindInvalidSession.String()
	}
	outcome.Message = err.Error()
	m.log.WarnObj("profile check failed", "check_outcome", outcome)
	return outcome
}

// close releases the storage backend and publishers, logging any errors encountered.
func (m *Monitor) close() {
	if err := m.fanout.Close(); err != nil {
		m.log.ErrorObj("publishers close failed", "error", err.Error())
	}
	if m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		m.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
