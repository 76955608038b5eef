package reconcile

import (
	"errors"
	"sort"

	"ledgerkeeper/internal/balance"
)

var ErrInvalidBatchSize = errors.New("batch size must be positive")

// CreateBatches splits user IDs into fixed-size batches, preserving
// order. The final batch may be shorter. Empty input yields an empty
// batch list, not a single empty batch.
func CreateBatches(userIDs []string, batchSize int) ([][]string, error) {
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	batches := make([][]string, 0, (len(userIDs)+batchSize-1)/batchSize)
	for start := 0; start < len(userIDs); start += batchSize {
		end := start + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batches = append(batches, userIDs[start:end])
	}

	return batches, nil
}

type UserError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

type BulkStats struct {
	ProcessedCount          int     `json:"processed_count"`
	UpdatedCount            int     `json:"updated_count"`
	InconsistencyCount      int     `json:"inconsistency_count"`
	ErrorCount              int     `json:"error_count"`
	ProcessingTimeMs        int64   `json:"processing_time_ms"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
}

func CalculateBulkStats(results []balance.ReconciliationResult, errs []UserError, startedAt, finishedAt int64) BulkStats {
	stats := BulkStats{
		ProcessedCount:   len(results),
		ErrorCount:       len(errs),
		ProcessingTimeMs: finishedAt - startedAt,
	}

	for _, res := range results {
		if res.WasUpdated {
			stats.UpdatedCount++
		}
		if len(res.Inconsistencies) > 0 {
			stats.InconsistencyCount++
		}
	}

	if stats.ProcessedCount > 0 {
		stats.AverageProcessingTimeMs = float64(stats.ProcessingTimeMs) / float64(stats.ProcessedCount)
	}

	return stats
}

// SortByPriority orders results for an operational review queue:
// accounts with any inconsistency first, then by descending absolute
// available-credit drift among equals. The sort is stable so equal
// entries keep their sweep order.
func SortByPriority(results []balance.ReconciliationResult) []balance.ReconciliationResult {
	sorted := make([]balance.ReconciliationResult, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		pi := len(sorted[i].Inconsistencies) > 0
		pj := len(sorted[j].Inconsistencies) > 0
		if pi != pj {
			return pi
		}
		return absInt64(sorted[i].Deltas.AvailableCredits) > absInt64(sorted[j].Deltas.AvailableCredits)
	})

	return sorted
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
