package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"omicsim/internal/model"
)

const (
	mrnaSuffix    = "_mRNA"
	proteinSuffix = "_Protein"
)

// WriteTimeSeriesCSV writes one row per recorded step with the header
// "Time,<SYM>_mRNA,<SYM>_Protein,...". Row i carries the time after step
// i+1, the mRNA sampled in that step and the protein it produced. Time uses
// two decimals and values four.
func WriteTimeSeriesCSV(w io.Writer, dt float64, series []model.GeneTimeSeries) error {
	writer := csv.NewWriter(w)

	header := make([]string, 0, 1+2*len(series))
	header = append(header, "Time")
	rows := -1
	for _, ts := range series {
		header = append(header, ts.Symbol+mrnaSuffix, ts.Symbol+proteinSuffix)
		n := len(ts.MRNA)
		if len(ts.Protein)-1 < n {
			n = len(ts.Protein) - 1
		}
		if n < 0 {
			n = 0
		}
		if rows < 0 || n < rows {
			rows = n
		}
	}
	if rows < 0 {
		rows = 0
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := 0; i < rows; i++ {
		record[0] = strconv.FormatFloat(float64(i+1)*dt, 'f', 2, 64)
		for j, ts := range series {
			record[1+2*j] = strconv.FormatFloat(ts.MRNA[i], 'f', 4, 64)
			record[2+2*j] = strconv.FormatFloat(ts.Protein[i+1], 'f', 4, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// TimeSeriesTable is a parsed time-series export. Protein columns hold the
// post-step samples only; the seeded baseline is not part of the file.
type TimeSeriesTable struct {
	Times  []float64
	Series []model.GeneTimeSeries
}

func ReadTimeSeriesCSV(r io.Reader) (TimeSeriesTable, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return TimeSeriesTable{}, fmt.Errorf("time series is empty")
		}
		return TimeSeriesTable{}, err
	}
	if len(header) == 0 || header[0] != "Time" || (len(header)-1)%2 != 0 {
		return TimeSeriesTable{}, fmt.Errorf("time series header must be Time followed by mRNA/Protein pairs")
	}

	table := TimeSeriesTable{Series: make([]model.GeneTimeSeries, (len(header)-1)/2)}
	for j := range table.Series {
		mrnaCol, proteinCol := header[1+2*j], header[2+2*j]
		symbol := strings.TrimSuffix(mrnaCol, mrnaSuffix)
		if symbol == mrnaCol || proteinCol != symbol+proteinSuffix {
			return TimeSeriesTable{}, fmt.Errorf("unexpected columns %q, %q", mrnaCol, proteinCol)
		}
		table.Series[j].Symbol = symbol
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return TimeSeriesTable{}, err
		}
		values := make([]float64, len(record))
		for k, raw := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return TimeSeriesTable{}, fmt.Errorf("line %d column %s: %w", line, header[k], err)
			}
			values[k] = v
		}
		table.Times = append(table.Times, values[0])
		for j := range table.Series {
			table.Series[j].MRNA = append(table.Series[j].MRNA, values[1+2*j])
			table.Series[j].Protein = append(table.Series[j].Protein, values[2+2*j])
		}
	}
	return table, nil
}
