package watchlist

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"WalletSentinel/internal/model"
)

// historyLimit is how many past primary labels are kept per wallet.
const historyLimit = 12

// Drift reports a change of primary label between two runs.
type Drift struct {
	Wallet         string
	From           model.Strategy
	To             model.Strategy
	FromConfidence float64
	ToConfidence   float64
	// StableRuns is how many times From repeated after its first run.
	StableRuns int
}

// Manager tracks watched wallets with concurrency safety.
type Manager struct {
	mu       sync.Mutex
	state    *model.WatchlistState
	filePath string
	logger   *zap.Logger
}

// NewManager creates a Manager, loading state from disk and adding any
// configured wallets not yet tracked.
func NewManager(filePath string, wallets []string, logger *zap.Logger) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, w := range wallets {
		if _, ok := state.Wallets[w]; !ok {
			state.Wallets[w] = &model.WatchState{Wallet: w}
		}
	}

	m := &Manager{state: state, filePath: filePath, logger: logger}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Wallets returns the watched wallets in sorted order.
func (m *Manager) Wallets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.state.Wallets))
	for w := range m.state.Wallets {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Get returns a copy of a wallet's state.
func (m *Manager) Get(wallet string) (model.WatchState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.state.Wallets[wallet]
	if !ok {
		return model.WatchState{}, false
	}
	cp := *ws
	cp.History = append([]model.Strategy(nil), ws.History...)
	return cp, true
}

// Add starts watching wallet. It reports false if it was already watched.
func (m *Manager) Add(wallet string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.Wallets[wallet]; ok {
		return false
	}
	m.state.Wallets[wallet] = &model.WatchState{Wallet: wallet}
	m.persist()
	return true
}

// Remove stops watching wallet. It reports false if it was not watched.
func (m *Manager) Remove(wallet string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.Wallets[wallet]; !ok {
		return false
	}
	delete(m.state.Wallets, wallet)
	m.persist()
	return true
}

// Observe folds a new thesis into the wallet's history and returns a Drift
// when the primary label changed. The first observation never drifts.
// Theses for wallets that are not watched, including ones removed while
// their analysis was in flight, are ignored.
func (m *Manager) Observe(th *model.Thesis) *Drift {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.state.Wallets[th.Wallet]
	if !ok {
		m.logger.Debug("ignoring thesis for unwatched wallet", zap.String("wallet", th.Wallet))
		return nil
	}

	var drift *Drift
	switch {
	case ws.LastPrimary == "":
		ws.ConsecutiveStable = 0
	case ws.LastPrimary == th.Primary:
		ws.ConsecutiveStable++
	default:
		drift = &Drift{
			Wallet:         th.Wallet,
			From:           ws.LastPrimary,
			To:             th.Primary,
			FromConfidence: ws.LastConfidence,
			ToConfidence:   th.Confidence,
			StableRuns:     ws.ConsecutiveStable,
		}
		ws.ConsecutiveStable = 0
	}

	ws.LastPrimary = th.Primary
	ws.LastConfidence = th.Confidence
	ws.LastAnalyzedAt = th.CreatedAt
	if ws.LastAnalyzedAt.IsZero() {
		ws.LastAnalyzedAt = time.Now().UTC()
	}
	ws.History = append(ws.History, th.Primary)
	if len(ws.History) > historyLimit {
		ws.History = ws.History[len(ws.History)-historyLimit:]
	}

	m.persist()
	if drift != nil {
		m.logger.Info("label drift",
			zap.String("wallet", th.Wallet),
			zap.String("from", string(drift.From)),
			zap.String("to", string(drift.To)))
	}
	return drift
}

// persist saves state; the caller holds mu.
func (m *Manager) persist() {
	if err := m.save(); err != nil {
		m.logger.Error("failed to save watchlist state", zap.Error(err))
	}
}

func (m *Manager) save() error {
	return SaveState(m.filePath, m.state)
}
