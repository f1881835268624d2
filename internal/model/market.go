package model

import (
	"strings"
	"time"
)

// Outcome sides as reported by the data service.
const (
	SideYes = "yes"
	SideNo  = "no"
)

// Position is a single holding snapshot for a wallet.
type Position struct {
	TotalBought  float64 `json:"tb"`
	AvgPrice     float64 `json:"ap"`
	CurrentPrice float64 `json:"cp"`
	PnL          float64 `json:"pnl"`
	Timestamp    int64   `json:"ts"`
	Title        string  `json:"t"`
	ConditionID  string  `json:"cid"`
	Outcome      string  `json:"o"`
}

// Side returns the lower-cased outcome side.
func (p Position) Side() string {
	return strings.ToLower(p.Outcome)
}

// OpenedAt returns the open time in UTC. Zero timestamps yield the zero time.
func (p Position) OpenedAt() time.Time {
	if p.Timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(p.Timestamp, 0).UTC()
}

// WalletProfile holds ranking data for a wallet.
type WalletProfile struct {
	Wallet         string   `json:"wallet"`
	Username       string   `json:"username,omitempty"`
	PnLAllTime     float64  `json:"pnl_all_time"`
	VolumePnLRatio *float64 `json:"volume_pnl_ratio,omitempty"`
	TradesL30      *int     `json:"trades_l30,omitempty"`
	Rank           *int     `json:"rank,omitempty"`
	ClosedWinRate  *float64 `json:"closed_winrate,omitempty"`
	SharpeScore    *float64 `json:"sharpe_score,omitempty"`
}

// PnLPoint is one sample of a wallet's daily PnL series.
type PnLPoint struct {
	Timestamp int64   `json:"ts"`
	PnL       float64 `json:"pnl"`
}

// WalletData is everything fetched for one analysis run.
type WalletData struct {
	Wallet     string
	Profile    *WalletProfile
	Positions  []Position
	PnLHistory []PnLPoint
	FetchedAt  time.Time
}
