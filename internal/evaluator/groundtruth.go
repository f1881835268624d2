package evaluator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"WalletSentinel/internal/model"
)

// ErrNotFound is returned when a wallet has no ground truth label.
var ErrNotFound = errors.New("ground truth not found")

// Difficulty grades how hard a labeled wallet is to classify.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// EvidencePoint is something a good analysis of the wallet should find.
type EvidencePoint struct {
	Description string  `yaml:"description" json:"description"`
	Importance  float64 `yaml:"importance" json:"importance"`
	Category    string  `yaml:"category" json:"category"`
}

// GroundTruth is the hand-assigned label for one wallet.
type GroundTruth struct {
	Wallet         string           `yaml:"wallet" json:"wallet"`
	Username       string           `yaml:"username,omitempty" json:"username,omitempty"`
	Primary        model.Strategy   `yaml:"primary_strategy" json:"primary_strategy"`
	Secondary      []model.Strategy `yaml:"secondary_strategies,omitempty" json:"secondary_strategies,omitempty"`
	Difficulty     Difficulty       `yaml:"difficulty" json:"difficulty"`
	EvidencePoints []EvidencePoint  `yaml:"evidence_points,omitempty" json:"evidence_points,omitempty"`
	Notes          string           `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// GroundTruthSet indexes labels by wallet.
type GroundTruthSet map[string]*GroundTruth

// Get returns the label for wallet or ErrNotFound.
func (s GroundTruthSet) Get(wallet string) (*GroundTruth, error) {
	gt, ok := s[wallet]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "wallet %s", wallet)
	}
	return gt, nil
}

// Wallets returns the labeled wallets in sorted order.
func (s GroundTruthSet) Wallets() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// LoadGroundTruth reads a list of labels from a .json, .yaml or .yml file.
// A missing file yields an empty set.
func LoadGroundTruth(path string) (GroundTruthSet, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GroundTruthSet{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read ground truth")
	}

	var items []GroundTruth
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &items)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		return nil, errors.Errorf("unsupported ground truth format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse ground truth")
	}

	set := make(GroundTruthSet, len(items))
	for i := range items {
		gt := &items[i]
		if gt.Wallet == "" {
			return nil, errors.Errorf("ground truth entry %d has no wallet", i)
		}
		if !gt.Primary.Valid() {
			return nil, errors.Errorf("wallet %s: invalid primary strategy %q", gt.Wallet, gt.Primary)
		}
		gt.Secondary = model.FilterStrategies(strategyStrings(gt.Secondary))
		set[gt.Wallet] = gt
	}
	return set, nil
}

func strategyStrings(ss []model.Strategy) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
