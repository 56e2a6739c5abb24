package features

import (
	"fmt"
	"sort"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"
)

// ValidationThreshold returns the first timestamp of the trailing pct share of
// times.
func ValidationThreshold(times []int64, pct float64) (int64, error) {
	if pct <= 0 || pct >= 1 {
		return 0, fmt.Errorf("validation pct %v out of (0,1)", pct)
	}
	n := len(times)
	k := int(pct * float64(n))
	if k == 0 {
		return 0, fmt.Errorf("%d rows leave no validation rows at %.2f%%: %w", n, pct*100, models.ErrNotEnoughData)
	}

	sorted := make([]int64, n)
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[n-k], nil
}

// SplitChronological splits f into rows before the threshold (train) and
// rows at or after it (validation).
func SplitChronological(f *frame.Frame, pct float64) (train, validation *frame.Frame, threshold int64, err error) {
	threshold, err = ValidationThreshold(f.Index(), pct)
	if err != nil {
		return nil, nil, 0, err
	}
	return f.Before(threshold), f.From(threshold), threshold, nil
}
