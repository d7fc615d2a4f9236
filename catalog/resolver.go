package catalog

import (
	"pa-intake/config"
	"pa-intake/textmatch"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Alternative is a sub-threshold candidate offered for disambiguation.
type Alternative struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Resolution is the outcome of resolving a free-text drug name. Drug is nil
// when nothing cleared the strict similarity bar; Alternatives then carries
// the best near-misses for a "did you mean" prompt.
type Resolution struct {
	Drug         *DrugRecord   `json:"drug,omitempty"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Resolver maps free-text medication names to catalog records. The catalog is
// read-only, so resolution results are cached in an LRU keyed by the corrected
// query and never invalidated.
type Resolver struct {
	catalog *Catalog
	cfg     *config.Config
	logger  *zap.Logger
	cache   *lru.Cache
}

func NewResolver(catalog *Catalog, cfg *config.Config, logger *zap.Logger) (*Resolver, error) {
	size := cfg.ResolverCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		catalog: catalog,
		cfg:     cfg,
		logger:  logger,
		cache:   cache,
	}, nil
}

// Resolve matches rawName against the catalog. Exact matches (name, generic
// name, or alias, case-insensitive) win with confidence 1.0. Otherwise each
// candidate is scored by its best similarity across all names and must clear
// an asymmetric bar: candidates whose name length differs from the query by
// more than two characters need the far bar (default 0.85), closer-length
// candidates the near bar (default 0.80). Short names tolerate fewer edits
// before becoming a different entity, hence the asymmetry. Ties at identical
// similarity break by catalog declaration order.
func (r *Resolver) Resolve(rawName string) Resolution {
	query := CorrectTranscription(rawName)
	if query == "" {
		return Resolution{}
	}

	if cached, ok := r.cache.Get(query); ok {
		return cached.(Resolution)
	}

	res := r.resolve(query)
	r.cache.Add(query, res)
	return res
}

func (r *Resolver) resolve(query string) Resolution {
	// Exact tier.
	for i := range r.catalog.Drugs {
		d := &r.catalog.Drugs[i]
		for _, name := range d.names() {
			if name == query {
				return Resolution{Drug: d, Confidence: 1.0}
			}
		}
	}

	// Fuzzy tier: best similarity per candidate across all of its names.
	type scored struct {
		drug *DrugRecord
		name string
		sim  float64
	}
	best := make([]scored, 0, len(r.catalog.Drugs))
	for i := range r.catalog.Drugs {
		d := &r.catalog.Drugs[i]
		top := scored{drug: d}
		for _, name := range d.names() {
			if sim := textmatch.Similarity(query, name); sim > top.sim {
				top.sim = sim
				top.name = name
			}
		}
		best = append(best, top)
	}

	var match *scored
	for i := range best {
		s := &best[i]
		if s.sim < r.strictBar(query, s.name) {
			continue
		}
		// Strictly-greater keeps the first declared record on ties.
		if match == nil || s.sim > match.sim {
			match = s
		}
	}
	if match != nil {
		r.logger.Debug("fuzzy drug resolution",
			zap.String("query", query),
			zap.String("drug", match.drug.Name),
			zap.Float64("confidence", match.sim))
		return Resolution{Drug: match.drug, Confidence: match.sim}
	}

	// Nothing cleared the strict bar: collect loose-bar candidates as
	// alternatives for disambiguation.
	maxAlts := r.cfg.MaxResolveAlternatives
	if maxAlts <= 0 {
		maxAlts = 3
	}
	var alts []Alternative
	for len(alts) < maxAlts {
		var top *scored
		for i := range best {
			s := &best[i]
			if s.sim <= 0 || s.sim < r.looseBar(query, s.name) {
				continue
			}
			if top == nil || s.sim > top.sim {
				top = s
			}
		}
		if top == nil {
			break
		}
		alts = append(alts, Alternative{Name: top.drug.Name, Confidence: top.sim})
		top.sim = 0 // consumed
	}
	return Resolution{Alternatives: alts}
}

func (r *Resolver) strictBar(query, candidate string) float64 {
	if lengthGap(query, candidate) > 2 {
		return r.cfg.ResolveStrictFarBar
	}
	return r.cfg.ResolveStrictThreshold
}

func (r *Resolver) looseBar(query, candidate string) float64 {
	if lengthGap(query, candidate) > 2 {
		return r.cfg.ResolveLooseFarBar
	}
	return r.cfg.ResolveLooseThreshold
}

func lengthGap(a, b string) int {
	gap := len(a) - len(b)
	if gap < 0 {
		gap = -gap
	}
	return gap
}
