package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"WalletSentinel/internal/model"
)

// Collector gathers everything an analysis run needs for one wallet.
type Collector struct {
	Fetcher Fetcher
	logger  *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, logger: logger}
}

// Collect fetches positions, profile and PnL history concurrently. Positions
// are required; a missing profile or history is logged and left empty.
func (c *Collector) Collect(ctx context.Context, wallet string) (*model.WalletData, error) {
	data := &model.WalletData{Wallet: wallet}
	log := c.logger.With(zap.String("wallet", wallet), zap.String("source", c.Fetcher.Name()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		positions, err := c.Fetcher.FetchPositions(ctx, wallet)
		if err != nil {
			return errors.Wrap(err, "collect positions")
		}
		data.Positions = positions
		return nil
	})
	g.Go(func() error {
		profile, err := c.Fetcher.FetchProfile(ctx, wallet)
		if err != nil {
			log.Warn("profile unavailable", zap.Error(err))
			return nil
		}
		data.Profile = profile
		return nil
	})
	g.Go(func() error {
		history, err := c.Fetcher.FetchPnLHistory(ctx, wallet)
		if err != nil {
			log.Warn("pnl history unavailable", zap.Error(err))
			return nil
		}
		data.PnLHistory = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.FetchedAt = time.Now().UTC()
	log.Info("collected wallet data",
		zap.Int("positions", len(data.Positions)),
		zap.Int("pnl_points", len(data.PnLHistory)),
		zap.Bool("profile", data.Profile != nil))
	return data, nil
}

// TopWallets returns up to limit ranked wallets from the data source.
func (c *Collector) TopWallets(ctx context.Context, limit int) ([]model.WalletProfile, error) {
	if limit <= 0 {
		limit = 20
	}
	wallets, err := c.Fetcher.FetchTopWallets(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "collect top wallets")
	}
	c.logger.Info("collected rankings", zap.String("source", c.Fetcher.Name()), zap.Int("wallets", len(wallets)))
	return wallets, nil
}
