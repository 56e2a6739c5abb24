package features

import (
	"fmt"
	"math"

	"CryptoRNN/internal/domain/models"
	"CryptoRNN/internal/services/frame"

	"gonum.org/v1/gonum/stat"
)

// PctChange returns v[i]/v[i-1] - 1. The first element is NaN.
func PctChange(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(v); i++ {
		out[i] = v[i]/v[i-1] - 1
	}
	return out
}

// Scale standardizes v to zero mean and unit population variance. A constant
// column scales to zeros.
func Scale(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(v, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, x := range v {
		out[i] = (x - mean) / std
	}
	return out
}

// Normalize drops the future column, turns every feature column into scaled
// percent changes and drops rows without a finite change.
//
// Rows are dropped jointly across all feature columns before any column is
// scaled, so scaling statistics only see kept rows. With positive inputs this
// costs exactly the leading row: n rows in, n-1 out.
func Normalize(f *frame.Frame) (*frame.Frame, error) {
	out := f.DropColumn(FutureColumn)
	if _, ok := out.Col(TargetColumn); !ok {
		return nil, fmt.Errorf("normalize: missing %s column", TargetColumn)
	}

	featureCols := FeatureColumns(out)
	for _, name := range featureCols {
		c, _ := out.Col(name)
		if err := out.AddColumn(name, PctChange(c)); err != nil {
			return nil, err
		}
	}
	out = out.DropNA(featureCols...)
	if out.Len() == 0 {
		return nil, fmt.Errorf("normalize: no rows after pct change: %w", models.ErrNotEnoughData)
	}

	for _, name := range featureCols {
		c, _ := out.Col(name)
		if err := out.AddColumn(name, Scale(c)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FeatureColumns lists the model inputs of f: every column but future and target.
func FeatureColumns(f *frame.Frame) []string {
	cols := f.Columns()
	out := cols[:0]
	for _, c := range cols {
		if c != FutureColumn && c != TargetColumn {
			out = append(out, c)
		}
	}
	return out
}
