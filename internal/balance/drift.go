package balance

// Reconcile pairs a freshly computed balance with the cached projection,
// producing signed per-field deltas (computed minus cached). Pure
// composition: the caller supplies the inconsistency descriptions and
// whether it chose to write the correction, so correction policy stays
// outside the calculation.
func Reconcile(userID string, computed Computed, cached Cached, inconsistencies []string, applied bool, asOf int64) ReconciliationResult {
	return ReconciliationResult{
		UserID:   userID,
		Computed: computed,
		Cached:   cached,
		Deltas: Deltas{
			AvailableCredits: computed.AvailableCredits - cached.Credits,
			HeldCredits:      computed.HeldCredits - cached.HeldCredits,
			LifetimeCredits:  computed.LifetimeCredits - cached.LifetimeCredits,
		},
		Inconsistencies: inconsistencies,
		WasUpdated:      applied,
		ReconciledAt:    asOf,
	}
}

// PrepareCacheUpdate builds the patch used to overwrite the cached
// projection. Persistence and audit attribution are the repository's
// responsibility.
func PrepareCacheUpdate(computed Computed, asOf int64) Patch {
	return Patch{
		Credits:            computed.AvailableCredits,
		HeldCredits:        computed.HeldCredits,
		LifetimeCredits:    computed.LifetimeCredits,
		CreditsLastUpdated: asOf,
	}
}
