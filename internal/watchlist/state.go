package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"WalletSentinel/internal/model"
)

// LoadState reads the watchlist from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.WatchlistState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.WatchlistState{Wallets: map[string]*model.WatchState{}}, nil
		}
		return nil, errors.Wrap(err, "read watchlist state")
	}
	var state model.WatchlistState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "decode watchlist state")
	}
	if state.Wallets == nil {
		state.Wallets = map[string]*model.WatchState{}
	}
	return &state, nil
}

// SaveState writes the watchlist to a JSON file, creating its directory if needed.
func SaveState(filePath string, state *model.WatchlistState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode watchlist state")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Wrap(err, "create state dir")
	}
	return errors.Wrap(os.WriteFile(filePath, data, 0o644), "write watchlist state")
}
