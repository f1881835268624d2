package collector

import (
	"context"

	"github.com/pkg/errors"

	"WalletSentinel/internal/model"
)

var (
	// ErrWalletNotFound is returned when the data source has no record of a wallet.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrBreakerOpen is returned while the data source circuit breaker is open.
	ErrBreakerOpen = errors.New("data source circuit breaker open")
)

// Fetcher defines the interface for fetching wallet data.
type Fetcher interface {
	FetchPositions(ctx context.Context, wallet string) ([]model.Position, error)
	FetchProfile(ctx context.Context, wallet string) (*model.WalletProfile, error)
	FetchPnLHistory(ctx context.Context, wallet string) ([]model.PnLPoint, error)
	FetchTopWallets(ctx context.Context, limit int) ([]model.WalletProfile, error)
	Name() string
}
