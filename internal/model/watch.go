package model

import "time"

// WatchState tracks the label history of one watched wallet.
type WatchState struct {
	Wallet            string     `json:"wallet"`
	LastPrimary       Strategy   `json:"last_primary"`
	LastConfidence    float64    `json:"last_confidence"`
	History           []Strategy `json:"history"`
	ConsecutiveStable int        `json:"consecutive_stable"`
	LastAnalyzedAt    time.Time  `json:"last_analyzed_at"`
}

// WatchlistState is the persisted watchlist.
type WatchlistState struct {
	Wallets   map[string]*WatchState `json:"wallets"`
	UpdatedAt time.Time              `json:"updated_at"`
}
