// Package catalog holds the medication catalog and resolves free-text drug
// names to canonical records.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DrugRecord is a canonical medication entry. Many records may share one
// question set.
type DrugRecord struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	GenericName   string   `yaml:"generic_name"`
	CommonNames   []string `yaml:"common_names"`
	QuestionSetID string   `yaml:"question_set_id"`
}

// Catalog is the read-only set of known drugs. Declaration order is
// significant: resolution ties break in favor of the first declared record.
type Catalog struct {
	Drugs []DrugRecord `yaml:"drugs"`

	byID map[string]*DrugRecord
}

// Load reads a catalog from a YAML file. An empty path returns the built-in
// default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	c.byID = make(map[string]*DrugRecord, len(c.Drugs))
	for i := range c.Drugs {
		d := &c.Drugs[i]
		if d.ID == "" || d.Name == "" {
			return fmt.Errorf("catalog entry %d missing id or name", i)
		}
		if d.QuestionSetID == "" {
			return fmt.Errorf("drug %s has no question set", d.ID)
		}
		if _, dup := c.byID[d.ID]; dup {
			return fmt.Errorf("duplicate drug id %s", d.ID)
		}
		c.byID[d.ID] = d
	}
	return nil
}

// ByID returns the drug record for an id, or nil.
func (c *Catalog) ByID(id string) *DrugRecord {
	return c.byID[id]
}

// names returns every matchable name of a record, lowercased.
func (d *DrugRecord) names() []string {
	out := make([]string, 0, len(d.CommonNames)+2)
	out = append(out, strings.ToLower(d.Name))
	if d.GenericName != "" {
		out = append(out, strings.ToLower(d.GenericName))
	}
	for _, n := range d.CommonNames {
		out = append(out, strings.ToLower(n))
	}
	return out
}

// Default returns the built-in catalog used when no catalog file is configured.
func Default() *Catalog {
	c := &Catalog{
		Drugs: []DrugRecord{
			{
				ID:            "ozempic",
				Name:          "Ozempic",
				GenericName:   "semaglutide",
				CommonNames:   []string{"ozempic pen", "semaglutide injection"},
				QuestionSetID: "glp1_diabetes",
			},
			{
				ID:            "wegovy",
				Name:          "Wegovy",
				GenericName:   "semaglutide",
				CommonNames:   []string{"wegovy pen"},
				QuestionSetID: "glp1_weight",
			},
			{
				ID:            "mounjaro",
				Name:          "Mounjaro",
				GenericName:   "tirzepatide",
				CommonNames:   []string{"mounjaro pen"},
				QuestionSetID: "glp1_diabetes",
			},
			{
				ID:            "humira",
				Name:          "Humira",
				GenericName:   "adalimumab",
				CommonNames:   []string{"humira pen", "adalimumab injection"},
				QuestionSetID: "tnf_biologic",
			},
			{
				ID:            "enbrel",
				Name:          "Enbrel",
				GenericName:   "etanercept",
				CommonNames:   []string{"enbrel sureclick"},
				QuestionSetID: "tnf_biologic",
			},
		},
	}
	if err := c.init(); err != nil {
		// Built-in data; an init failure is a programming error.
		panic(err)
	}
	return c
}
