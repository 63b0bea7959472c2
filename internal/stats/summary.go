package stats

import (
	"gonum.org/v1/gonum/stat"

	"omicsim/internal/model"
)

// GeneSummary condenses one gene's trajectory. Protein statistics include
// the seeded baseline sample.
type GeneSummary struct {
	Symbol       string  `json:"symbol"`
	Samples      int     `json:"samples"`
	FinalMRNA    float64 `json:"final_mrna"`
	FinalProtein float64 `json:"final_protein"`
	MeanMRNA     float64 `json:"mean_mrna"`
	StdMRNA      float64 `json:"std_mrna"`
	MeanProtein  float64 `json:"mean_protein"`
	StdProtein   float64 `json:"std_protein"`
}

func Summarize(series []model.GeneTimeSeries) []GeneSummary {
	out := make([]GeneSummary, 0, len(series))
	for _, ts := range series {
		s := GeneSummary{Symbol: ts.Symbol, Samples: len(ts.MRNA)}
		if n := len(ts.MRNA); n > 0 {
			s.FinalMRNA = ts.MRNA[n-1]
		}
		if p, ok := ts.LastProtein(); ok {
			s.FinalProtein = p
		}
		s.MeanMRNA, s.StdMRNA = meanStd(ts.MRNA)
		s.MeanProtein, s.StdProtein = meanStd(ts.Protein)
		out = append(out, s)
	}
	return out
}

// meanStd is stat.MeanStdDev with the single-sample and empty cases pinned
// to a zero deviation.
func meanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}
