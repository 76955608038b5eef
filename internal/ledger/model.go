package ledger

import "time"

type EntryType string

const (
	TypePurchase      EntryType = "purchase"
	TypeBookingCharge EntryType = "booking_charge"
	TypeBonus         EntryType = "bonus"
	TypeGift          EntryType = "gift"
	TypeRefund        EntryType = "refund"
	TypeAdminGrant    EntryType = "admin_grant"
	TypeHold          EntryType = "hold"
	TypeHoldRelease   EntryType = "hold_release"
)

func (t EntryType) Valid() bool {
	switch t {
	case TypePurchase, TypeBookingCharge, TypeBonus, TypeGift,
		TypeRefund, TypeAdminGrant, TypeHold, TypeHoldRelease:
		return true
	}
	return false
}

// IsHold reports whether the entry moves reserved credits rather than
// the spendable balance.
func (t EntryType) IsHold() bool {
	return t == TypeHold || t == TypeHoldRelease
}

// Entry is an immutable credit-affecting fact. Entries are never updated
// or physically removed; corrections are new offsetting entries and
// removals flip the deleted flag.
type Entry struct {
	ID          int64     `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        EntryType `db:"type" json:"type"`
	EffectiveAt int64     `db:"effective_at" json:"effective_at"`
	ExpiresAt   *int64    `db:"expires_at" json:"expires_at,omitempty"`
	Deleted     bool      `db:"deleted" json:"deleted"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
