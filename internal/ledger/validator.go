package ledger

import "fmt"

// Validate pre-flight-checks a set of entries before they reach the
// balance calculator. All violations are collected in one pass so a
// single call reports every problem; an empty result means the set is
// structurally sound. The caller decides whether to abort or proceed.
func Validate(entries []Entry) []string {
	var violations []string

	for i, e := range entries {
		if e.UserID == "" {
			violations = append(violations, fmt.Sprintf("entry %d: user id is empty", i))
		}

		if e.Type == "" {
			violations = append(violations, fmt.Sprintf("entry %d: type is empty", i))
		} else if !e.Type.Valid() {
			violations = append(violations, fmt.Sprintf("entry %d: unknown type %q", i, e.Type))
		}

		if e.EffectiveAt <= 0 {
			violations = append(violations, fmt.Sprintf("entry %d: effective_at must be positive, got %d", i, e.EffectiveAt))
		}

		if e.ExpiresAt != nil && *e.ExpiresAt <= e.EffectiveAt {
			violations = append(violations, fmt.Sprintf("entry %d: expires_at %d is not after effective_at %d", i, *e.ExpiresAt, e.EffectiveAt))
		}
	}

	return violations
}
