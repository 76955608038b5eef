package balance

import "time"

// Computed is the ground-truth balance derived by replaying a user's
// ledger. It is recomputed on demand and never persisted.
type Computed struct {
	AvailableCredits int64 `json:"available_credits"`
	HeldCredits      int64 `json:"held_credits"`
	LifetimeCredits  int64 `json:"lifetime_credits"`
	ExpiredCredits   int64 `json:"expired_credits"`
	TotalCredits     int64 `json:"total_credits"`
	CalculatedAt     int64 `json:"calculated_at"`
}

// Cached is the persisted projection a read path uses without replaying
// the ledger. It is a performance optimization, never authoritative.
type Cached struct {
	UserID             string    `db:"user_id" json:"user_id"`
	Credits            int64     `db:"credits" json:"credits"`
	HeldCredits        int64     `db:"held_credits" json:"held_credits"`
	LifetimeCredits    int64     `db:"lifetime_credits" json:"lifetime_credits"`
	CreditsLastUpdated int64     `db:"credits_last_updated" json:"credits_last_updated"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Patch overwrites the cached projection when a correction is applied.
type Patch struct {
	Credits            int64 `json:"credits"`
	HeldCredits        int64 `json:"held_credits"`
	LifetimeCredits    int64 `json:"lifetime_credits"`
	CreditsLastUpdated int64 `json:"credits_last_updated"`
}

type Deltas struct {
	AvailableCredits int64 `json:"available_credits"`
	HeldCredits      int64 `json:"held_credits"`
	LifetimeCredits  int64 `json:"lifetime_credits"`
}

type ReconciliationResult struct {
	UserID          string   `json:"user_id"`
	Computed        Computed `json:"computed"`
	Cached          Cached   `json:"cached"`
	Deltas          Deltas   `json:"deltas"`
	Inconsistencies []string `json:"inconsistencies"`
	WasUpdated      bool     `json:"was_updated"`
	ReconciledAt    int64    `json:"reconciled_at"`
}
