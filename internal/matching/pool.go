package matching

import (
	"strings"
	"sync"
	"unicode/utf8"

	"eidoscope/internal/taxon"
)

// Candidate is one name the registry knows, tied to its registry ID. Synonyms
// share the ID of their accepted name.
type Candidate struct {
	Name     string
	ID       string
	Accepted bool

	key  string
	size int
}

// NewCandidate builds a candidate with its comparison key precomputed.
func NewCandidate(name, id string, accepted bool) Candidate {
	c := Candidate{Name: strings.TrimSpace(name), ID: strings.TrimSpace(id), Accepted: accepted}
	c.key = taxon.Normalize(c.Name)
	c.size = utf8.RuneCountInString(c.key)
	return c
}

// Key returns the normalized comparison form of the candidate name.
func (c Candidate) Key() string {
	if c.key == "" && c.Name != "" {
		return taxon.Normalize(c.Name)
	}
	return c.key
}

func (c Candidate) prepared() Candidate {
	if c.key == "" && c.Name != "" {
		return NewCandidate(c.Name, c.ID, c.Accepted)
	}
	return c
}

// Pool is the candidate set consulted while resolving a batch. The base index
// is read-only after construction; extras may be added concurrently.
type Pool struct {
	base   []Candidate
	genera map[string]struct{}

	mu          sync.RWMutex
	extras      []Candidate
	extraSeen   map[string]struct{}
	extraGenera map[string]struct{}
}

// NewPool indexes the base candidates. Entries with an empty name or ID are
// skipped and duplicates (same key and ID) are collapsed.
func NewPool(base []Candidate) *Pool {
	p := &Pool{
		genera:      make(map[string]struct{}),
		extraSeen:   make(map[string]struct{}),
		extraGenera: make(map[string]struct{}),
	}
	seen := make(map[string]struct{}, len(base))
	p.base = make([]Candidate, 0, len(base))
	for _, c := range base {
		c = c.prepared()
		if c.Key() == "" || c.ID == "" {
			continue
		}
		id := c.Key() + "\x00" + c.ID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		p.base = append(p.base, c)
		p.genera[taxon.Genus(c.Key())] = struct{}{}
	}
	return p
}

// Fork returns a pool sharing this pool's base index with an empty extras set.
// Each batch run forks the long-lived checklist pool so discoveries never
// cross runs.
func (p *Pool) Fork() *Pool {
	return &Pool{
		base:        p.base,
		genera:      p.genera,
		extraSeen:   make(map[string]struct{}),
		extraGenera: make(map[string]struct{}),
	}
}

// Add records candidates discovered during the run. It is safe for concurrent use.
func (p *Pool) Add(candidates ...Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range candidates {
		c = c.prepared()
		if c.Key() == "" || c.ID == "" {
			continue
		}
		id := c.Key() + "\x00" + c.ID
		if _, ok := p.extraSeen[id]; ok {
			continue
		}
		p.extraSeen[id] = struct{}{}
		p.extras = append(p.extras, c)
		p.extraGenera[taxon.Genus(c.Key())] = struct{}{}
	}
}

// Len returns the number of candidates in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.base) + len(p.extras)
}

// HasGenus reports whether any candidate in the pool belongs to genus.
func (p *Pool) HasGenus(genus string) bool {
	if genus == "" {
		return false
	}
	if _, ok := p.genera[genus]; ok {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.extraGenera[genus]
	return ok
}

// Candidates returns the pool entries whose length could reach minScore
// against query. Base entries come first, then extras in insertion order.
func (p *Pool) Candidates(query string, minScore float64) []Candidate {
	key := taxon.Normalize(query)
	if key == "" {
		return nil
	}
	size := utf8.RuneCountInString(key)
	var out []Candidate
	for _, c := range p.base {
		if withinLengthBound(size, c.size, minScore) {
			out = append(out, c)
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.extras {
		if withinLengthBound(size, c.size, minScore) {
			out = append(out, c)
		}
	}
	return out
}
