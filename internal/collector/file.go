package collector

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"WalletSentinel/internal/model"
)

// Fixture is the on-disk shape of one wallet's data.
type Fixture struct {
	Profile    *model.WalletProfile `json:"profile,omitempty"`
	Positions  []model.Position     `json:"positions"`
	PnLHistory []model.PnLPoint     `json:"pnl_history,omitempty"`
}

// FileFetcher serves wallet data from <dir>/<wallet>.json fixtures.
type FileFetcher struct {
	Dir string
}

func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{Dir: dir}
}

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) load(wallet string) (*Fixture, error) {
	if wallet == "" || strings.ContainsAny(wallet, `/\`) {
		return nil, errors.Errorf("invalid wallet %q", wallet)
	}
	data, err := os.ReadFile(filepath.Join(f.Dir, wallet+".json"))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrWalletNotFound, "fixture %s", wallet)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read fixture %s", wallet)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, errors.Wrapf(err, "decode fixture %s", wallet)
	}
	return &fx, nil
}

func (f *FileFetcher) FetchPositions(_ context.Context, wallet string) ([]model.Position, error) {
	fx, err := f.load(wallet)
	if err != nil {
		return nil, err
	}
	return fx.Positions, nil
}

func (f *FileFetcher) FetchProfile(_ context.Context, wallet string) (*model.WalletProfile, error) {
	fx, err := f.load(wallet)
	if err != nil {
		return nil, err
	}
	if fx.Profile == nil {
		return &model.WalletProfile{Wallet: wallet}, nil
	}
	return fx.Profile, nil
}

func (f *FileFetcher) FetchPnLHistory(_ context.Context, wallet string) ([]model.PnLPoint, error) {
	fx, err := f.load(wallet)
	if err != nil {
		return nil, err
	}
	return fx.PnLHistory, nil
}

// FetchTopWallets lists fixtures ordered by all-time PnL.
func (f *FileFetcher) FetchTopWallets(ctx context.Context, limit int) ([]model.WalletProfile, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "list fixtures")
	}
	var out []model.WalletProfile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		wallet := strings.TrimSuffix(e.Name(), ".json")
		p, err := f.FetchProfile(ctx, wallet)
		if err != nil {
			return nil, err
		}
		if p.Wallet == "" {
			p.Wallet = wallet
		}
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PnLAllTime > out[j].PnLAllTime })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// WriteFixture stores data for wallet under dir, creating it if needed.
func WriteFixture(dir, wallet string, fx *Fixture) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create fixture dir")
	}
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode fixture")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, wallet+".json"), data, 0o644), "write fixture")
}
