package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"omicsim/internal/model"
)

// Format selects the encoding of an import payload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultEta is used for imported genes that omit a translation efficiency.
const DefaultEta = 0.7

var ErrInvalidRecord = errors.New("invalid record")

// ImportError locates a rejected record. Line is the 1-based CSV line or
// the 1-based element index for JSON/YAML payloads.
type ImportError struct {
	Line  int
	Field string
	Err   error
}

func (e *ImportError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("record %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// ParseFormat maps a file extension or format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported import format: %s", name)
	}
}

// ReadGenes decodes and validates gene records. Any invalid record rejects
// the whole payload.
func ReadGenes(r io.Reader, format Format) ([]model.Gene, error) {
	var genes []model.Gene
	switch format {
	case FormatCSV:
		var err error
		genes, err = readGenesCSV(r)
		if err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&genes); err != nil {
			return nil, fmt.Errorf("decode genes json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&genes); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode genes yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported import format: %s", format)
	}

	seen := make(map[string]int, len(genes))
	for i := range genes {
		genes[i].Symbol = strings.TrimSpace(genes[i].Symbol)
		if format != FormatCSV && genes[i].DefaultEta == 0 {
			genes[i].DefaultEta = DefaultEta
		}
		if err := validateGene(i+1, genes[i]); err != nil {
			return nil, err
		}
		if prev, dup := seen[genes[i].Symbol]; dup {
			return nil, &ImportError{Line: i + 1, Field: "symbol", Err: fmt.Errorf("%w: duplicate of record %d", ErrInvalidRecord, prev)}
		}
		seen[genes[i].Symbol] = i + 1
	}
	return genes, nil
}

// ImportGenes validates the payload and returns a catalog with it merged in.
func (c *Catalog) ImportGenes(r io.Reader, format Format) (*Catalog, int, error) {
	genes, err := ReadGenes(r, format)
	if err != nil {
		return nil, 0, err
	}
	return c.WithGenes(genes), len(genes), nil
}

func ReadDiseases(r io.Reader, format Format) ([]model.Disease, error) {
	var diseases []model.Disease
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&diseases); err != nil {
			return nil, fmt.Errorf("decode diseases json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&diseases); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode diseases yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported disease import format: %s", format)
	}

	for i := range diseases {
		diseases[i].Name = strings.TrimSpace(diseases[i].Name)
		if diseases[i].Name == "" {
			return nil, &ImportError{Line: i + 1, Field: "name", Err: fmt.Errorf("%w: name is required", ErrInvalidRecord)}
		}
		if !finite(diseases[i].Bias) {
			return nil, &ImportError{Line: i + 1, Field: "bias", Err: fmt.Errorf("%w: must be finite", ErrInvalidRecord)}
		}
		for symbol, weight := range diseases[i].GeneWeights {
			if strings.TrimSpace(symbol) == "" || !finite(weight) {
				return nil, &ImportError{Line: i + 1, Field: "gene_weights", Err: fmt.Errorf("%w: bad weight for %q", ErrInvalidRecord, symbol)}
			}
		}
	}
	return diseases, nil
}

func (c *Catalog) ImportDiseases(r io.Reader, format Format) (*Catalog, int, error) {
	diseases, err := ReadDiseases(r, format)
	if err != nil {
		return nil, 0, err
	}
	return c.WithDiseases(diseases), len(diseases), nil
}

func validateGene(line int, gene model.Gene) error {
	if gene.Symbol == "" {
		return &ImportError{Line: line, Field: "symbol", Err: fmt.Errorf("%w: symbol is required", ErrInvalidRecord)}
	}
	positive := []struct {
		field string
		value float64
	}{
		{"baseline_tpm", gene.BaselineTPM},
		{"baseline_protein", gene.BaselineProtein},
	}
	for _, f := range positive {
		if !finite(f.value) || f.value <= 0 {
			return &ImportError{Line: line, Field: f.field, Err: fmt.Errorf("%w: must be > 0, got %v", ErrInvalidRecord, f.value)}
		}
	}
	nonNegative := []struct {
		field string
		value float64
	}{
		{"vmax", gene.Vmax},
		{"default_eta", gene.DefaultEta},
	}
	for _, f := range nonNegative {
		if !finite(f.value) || f.value < 0 {
			return &ImportError{Line: line, Field: f.field, Err: fmt.Errorf("%w: must be >= 0, got %v", ErrInvalidRecord, f.value)}
		}
	}
	return nil
}

func readGenesCSV(r io.Reader) ([]model.Gene, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read genes csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"symbol", "baseline_tpm", "vmax", "baseline_protein"} {
		if _, ok := columns[required]; !ok {
			return nil, &ImportError{Line: 1, Field: required, Err: fmt.Errorf("%w: missing column", ErrInvalidRecord)}
		}
	}

	genes := make([]model.Gene, 0, 16)
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read genes csv line %d: %w", line, err)
		}
		if blankRecord(record) {
			continue
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		number := func(name string, fallback float64) (float64, error) {
			raw := field(name)
			if raw == "" {
				return fallback, nil
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, &ImportError{Line: line, Field: name, Err: fmt.Errorf("%w: %v", ErrInvalidRecord, err)}
			}
			return v, nil
		}

		gene := model.Gene{
			Symbol:      field("symbol"),
			Name:        field("name"),
			Description: field("description"),
		}
		if gene.BaselineTPM, err = number("baseline_tpm", 0); err != nil {
			return nil, err
		}
		if gene.Vmax, err = number("vmax", 0); err != nil {
			return nil, err
		}
		if gene.BaselineProtein, err = number("baseline_protein", 0); err != nil {
			return nil, err
		}
		if gene.DefaultEta, err = number("default_eta", DefaultEta); err != nil {
			return nil, err
		}
		if err := validateGene(line, gene); err != nil {
			return nil, err
		}
		genes = append(genes, gene)
	}
	return genes, nil
}

func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
