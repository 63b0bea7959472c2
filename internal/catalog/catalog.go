// Package catalog holds the read-only gene and disease records the engine
// simulates against.
package catalog

import (
	"errors"
	"sort"
	"strings"

	"omicsim/internal/model"
)

var (
	ErrUnknownGene    = errors.New("unknown gene")
	ErrUnknownDisease = errors.New("unknown disease")
)

// Catalog is shared read-only once built. Merge methods return a new
// Catalog so existing holders never observe a change mid-run.
type Catalog struct {
	genes        map[string]model.Gene
	geneOrder    []string
	diseases     map[string]model.Disease
	diseaseOrder []string
}

func New(genes []model.Gene, diseases []model.Disease) *Catalog {
	c := &Catalog{
		genes:    make(map[string]model.Gene, len(genes)),
		diseases: make(map[string]model.Disease, len(diseases)),
	}
	for _, gene := range genes {
		c.putGene(gene)
	}
	for _, disease := range diseases {
		c.putDisease(disease)
	}
	return c
}

// Default returns the built-in educational catalog.
func Default() *Catalog {
	return New(builtinGenes(), builtinDiseases())
}

func (c *Catalog) putGene(gene model.Gene) {
	if _, exists := c.genes[gene.Symbol]; !exists {
		c.geneOrder = append(c.geneOrder, gene.Symbol)
	}
	c.genes[gene.Symbol] = gene
}

func (c *Catalog) putDisease(disease model.Disease) {
	if _, exists := c.diseases[disease.Name]; !exists {
		c.diseaseOrder = append(c.diseaseOrder, disease.Name)
	}
	weights := make(map[string]float64, len(disease.GeneWeights))
	for symbol, weight := range disease.GeneWeights {
		weights[symbol] = weight
	}
	disease.GeneWeights = weights
	c.diseases[disease.Name] = disease
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		genes:        make(map[string]model.Gene, len(c.genes)),
		geneOrder:    append([]string(nil), c.geneOrder...),
		diseases:     make(map[string]model.Disease, len(c.diseases)),
		diseaseOrder: append([]string(nil), c.diseaseOrder...),
	}
	for k, v := range c.genes {
		out.genes[k] = v
	}
	for k, v := range c.diseases {
		out.diseases[k] = v
	}
	return out
}

// ListGenes returns genes in insertion order.
func (c *Catalog) ListGenes() []model.Gene {
	out := make([]model.Gene, 0, len(c.geneOrder))
	for _, symbol := range c.geneOrder {
		out = append(out, c.genes[symbol])
	}
	return out
}

// ListDiseases returns diseases in insertion order with copied weight maps.
func (c *Catalog) ListDiseases() []model.Disease {
	out := make([]model.Disease, 0, len(c.diseaseOrder))
	for _, name := range c.diseaseOrder {
		disease, _ := c.Disease(name)
		out = append(out, disease)
	}
	return out
}

func (c *Catalog) Gene(symbol string) (model.Gene, bool) {
	gene, ok := c.genes[strings.TrimSpace(symbol)]
	return gene, ok
}

func (c *Catalog) Disease(name string) (model.Disease, bool) {
	disease, ok := c.diseases[strings.TrimSpace(name)]
	if !ok {
		return model.Disease{}, false
	}
	weights := make(map[string]float64, len(disease.GeneWeights))
	for symbol, weight := range disease.GeneWeights {
		weights[symbol] = weight
	}
	disease.GeneWeights = weights
	return disease, true
}

// Symbols returns all gene symbols sorted alphabetically.
func (c *Catalog) Symbols() []string {
	out := append([]string(nil), c.geneOrder...)
	sort.Strings(out)
	return out
}

// WithGenes returns a copy of the catalog with genes merged in; entries with
// an existing symbol replace the old record in place.
func (c *Catalog) WithGenes(genes []model.Gene) *Catalog {
	out := c.clone()
	for _, gene := range genes {
		out.putGene(gene)
	}
	return out
}

func (c *Catalog) WithDiseases(diseases []model.Disease) *Catalog {
	out := c.clone()
	for _, disease := range diseases {
		out.putDisease(disease)
	}
	return out
}
