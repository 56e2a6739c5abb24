package features

import (
	"fmt"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"
)

const (
	FutureColumn = "future"
	TargetColumn = "target"
)

// Classify returns 1 (buy) when the future price is above the current one.
func Classify(current, future float64) int {
	if future > current {
		return 1
	}
	return 0
}

// AddTarget adds the future close of ratio, n rows ahead, and its buy label.
// The last n rows have no future and are dropped.
func AddTarget(f *frame.Frame, ratio string, n int) (*frame.Frame, error) {
	if n < 1 {
		return nil, fmt.Errorf("future period must be positive, got %d", n)
	}
	closeCol := frame.CloseColumn(ratio)
	current, ok := f.Col(closeCol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", ratio, models.ErrUnknownRatio)
	}

	future, err := f.Shift(closeCol, -n)
	if err != nil {
		return nil, err
	}
	target := make([]float64, len(future))
	for i := range future {
		target[i] = float64(Classify(current[i], future[i]))
	}

	out := f.DropColumn(FutureColumn).DropColumn(TargetColumn)
	if err := out.AddColumn(FutureColumn, future); err != nil {
		return nil, err
	}
	if err := out.AddColumn(TargetColumn, target); err != nil {
		return nil, err
	}
	return out.DropNA(FutureColumn), nil
}
