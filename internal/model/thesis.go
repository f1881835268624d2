package model

import "time"

// Thesis is the final analysis record for a wallet.
type Thesis struct {
	RunID            string     `json:"run_id,omitempty"`
	Wallet           string     `json:"wallet"`
	Primary          Strategy   `json:"primary_strategy"`
	Secondary        []Strategy `json:"secondary_strategies"`
	Confidence       float64    `json:"confidence"`
	Evidence         []string   `json:"evidence"`
	Reasoning        string     `json:"reasoning"`
	SignalsToMonitor []string   `json:"signals_to_monitor"`
	RiskAssessment   string     `json:"risk_assessment"`
	PositionCount    int        `json:"position_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Demote appends s to the secondary labels unless it is already present or is the primary.
func (t *Thesis) Demote(s Strategy) {
	if s == t.Primary {
		return
	}
	for _, v := range t.Secondary {
		if v == s {
			return
		}
	}
	t.Secondary = append(t.Secondary, s)
}
