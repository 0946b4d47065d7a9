package payment

import (
	"context"
	"sync"
	"time"

	"deskhub/internal/logger"
)

// SettingsProvider holds the current fee configuration snapshot. The snapshot
// is refreshed on a timer outside the request path; requests read whatever
// was last fetched, falling back to defaults if nothing ever loaded.
type SettingsProvider struct {
	repo     Repository
	defaults FeeSnapshot

	mu   sync.RWMutex
	snap FeeSnapshot
}

func NewSettingsProvider(repo Repository, defaults FeeSnapshot) *SettingsProvider {
	defaults.FetchedAt = time.Now()
	return &SettingsProvider{
		repo:     repo,
		defaults: defaults,
		snap:     defaults,
	}
}

// Snapshot returns the fee configuration currently in force.
func (p *SettingsProvider) Snapshot() FeeSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *SettingsProvider) Refresh(ctx context.Context) {
	snap, err := p.repo.FetchFeeSettings(ctx)
	if err != nil {
		logger.Error("fee settings refresh failed, keeping previous snapshot", "error", err)
		return
	}

	p.mu.Lock()
	p.snap = *snap
	p.mu.Unlock()
}

func (p *SettingsProvider) Start(ctx context.Context, interval time.Duration) {
	go func() {
		p.Refresh(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Refresh(ctx)
			}
		}
	}()
}
