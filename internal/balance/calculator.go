package balance

import "ledgerkeeper/internal/ledger"

// Calculate folds a user's ledger entries into a balance as of the given
// timestamp. The fold is order-independent: entries may arrive in any
// order and the result is identical. Deleted entries and entries not yet
// effective are skipped entirely.
//
// Positive amounts always count toward lifetime credits; whether they
// land in available or expired depends on expires_at relative to asOf.
// Negative amounts reduce available credits and are not expirable.
// Hold-typed entries move reserved credits only and never touch the
// spendable, lifetime or expired totals. Zero amounts are audit markers
// and contribute nothing.
//
// Available and held credits are clamped at zero after the fold: a
// charge sequence exceeding recorded grants must never surface a
// negative spendable balance.
func Calculate(entries []ledger.Entry, asOf int64) Computed {
	c := Computed{CalculatedAt: asOf}

	for _, e := range entries {
		if e.Deleted {
			continue
		}
		if e.EffectiveAt > asOf {
			continue
		}

		if e.Type.IsHold() {
			c.HeldCredits += e.Amount
			continue
		}

		switch {
		case e.Amount > 0:
			c.LifetimeCredits += e.Amount
			if e.ExpiresAt != nil && *e.ExpiresAt <= asOf {
				c.ExpiredCredits += e.Amount
			} else {
				c.AvailableCredits += e.Amount
			}
		case e.Amount < 0:
			c.AvailableCredits += e.Amount
		}
	}

	if c.AvailableCredits < 0 {
		c.AvailableCredits = 0
	}
	if c.HeldCredits < 0 {
		c.HeldCredits = 0
	}
	c.TotalCredits = c.AvailableCredits + c.ExpiredCredits

	return c
}
