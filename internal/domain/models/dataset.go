package models

// Sequence is one model input sample: SeqLen consecutive feature rows and the
// label of the last row.
type Sequence struct {
	Steps [][]float64
	Label int
}

// Dataset is the array form fed to the network.
type Dataset struct {
	X        [][][]float64
	Y        []int
	Features []string
}

// Len returns the number of samples.
func (d Dataset) Len() int { return len(d.Y) }

// ClassCounts counts samples per label. Label 0 is "dont buy", 1 is "buy".
type ClassCounts struct {
	DontBuys int `json:"dont_buys"`
	Buys     int `json:"buys"`
}

// Count tallies labels.
func Count(y []int) ClassCounts {
	var c ClassCounts
	for _, v := range y {
		if v == 1 {
			c.Buys++
		} else {
			c.DontBuys++
		}
	}
	return c
}

// PreparedData is the output of the preparation pipeline.
type PreparedData struct {
	Train       Dataset
	Validation  Dataset
	TrainCounts ClassCounts
	ValCounts   ClassCounts
	Threshold   int64
	Rows        int
}

// PreviewRow is one line of the label preview: current close, future close, target.
type PreviewRow struct {
	Time    int64   `json:"time"`
	Current float64 `json:"current"`
	Future  float64 `json:"future"`
	Target  int     `json:"target"`
}
