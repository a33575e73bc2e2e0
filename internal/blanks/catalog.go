package blanks

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, ordered snapshot of policies and blanks.
type Catalog struct {
	policies []Policy
	blanks   []Blank
	byID     map[string]int
	policyIx map[string]int
}

type catalogFile struct {
	Policies []policyEntry `yaml:"policies"`
	Blanks   []blankEntry  `yaml:"blanks"`
}

type policyEntry struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
}

type blankEntry struct {
	ID       string  `yaml:"id"`
	Question string  `yaml:"question"`
	Scope    string  `yaml:"scope"`
	Policy   string  `yaml:"policy"`
	Default  *string `yaml:"default"`
	Help     string  `yaml:"help"`
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(bytes.NewReader(raw))
}

// ParseCatalog decodes and validates a YAML catalog. Entry order is the question order.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	policies := make([]Policy, 0, len(file.Policies))
	for i, p := range file.Policies {
		policies = append(policies, Policy{
			ID:       strings.TrimSpace(p.ID),
			Title:    strings.TrimSpace(p.Title),
			Position: i,
		})
	}
	blanks := make([]Blank, 0, len(file.Blanks))
	for i, b := range file.Blanks {
		blanks = append(blanks, Blank{
			ID:           strings.TrimSpace(b.ID),
			Question:     strings.TrimSpace(b.Question),
			Scope:        Scope(strings.ToLower(strings.TrimSpace(b.Scope))),
			PolicyID:     strings.TrimSpace(b.Policy),
			DefaultValue: b.Default,
			Help:         strings.TrimSpace(b.Help),
			Position:     i,
		})
	}
	return NewCatalog(policies, blanks)
}

// NewCatalog validates and indexes the given definitions.
func NewCatalog(policies []Policy, blanks []Blank) (*Catalog, error) {
	c := &Catalog{
		policies: append([]Policy(nil), policies...),
		blanks:   append([]Blank(nil), blanks...),
		byID:     make(map[string]int, len(blanks)),
		policyIx: make(map[string]int, len(policies)),
	}
	for i, p := range c.policies {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: policy %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.policyIx[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate policy %q", ErrInvalidCatalog, p.ID)
		}
		c.policyIx[p.ID] = i
	}
	for i, b := range c.blanks {
		if !ValidID(b.ID) {
			return nil, fmt.Errorf("%w: blank %d has invalid id %q", ErrInvalidCatalog, i, b.ID)
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate blank %q", ErrInvalidCatalog, b.ID)
		}
		if b.Question == "" {
			return nil, fmt.Errorf("%w: blank %q has no question", ErrInvalidCatalog, b.ID)
		}
		switch b.Scope {
		case ScopeCommon:
			if b.PolicyID != "" {
				return nil, fmt.Errorf("%w: common blank %q must not name a policy", ErrInvalidCatalog, b.ID)
			}
		case ScopePolicy:
			if b.PolicyID == "" {
				return nil, fmt.Errorf("%w: policy blank %q has no policy", ErrInvalidCatalog, b.ID)
			}
			if _, ok := c.policyIx[b.PolicyID]; !ok {
				return nil, fmt.Errorf("%w: blank %q references unknown policy %q", ErrInvalidCatalog, b.ID, b.PolicyID)
			}
		default:
			return nil, fmt.Errorf("%w: blank %q has invalid scope %q", ErrInvalidCatalog, b.ID, b.Scope)
		}
		c.byID[b.ID] = i
	}
	return c, nil
}

// Policies returns the policies in catalog order.
func (c *Catalog) Policies() []Policy {
	return append([]Policy(nil), c.policies...)
}

// Blanks returns blanks matching the filter, in catalog order.
func (c *Catalog) Blanks(filter Filter) []Blank {
	if filter.Scope == "" && filter.PolicyID != "" {
		return c.InScope(filter.PolicyID)
	}
	out := make([]Blank, 0, len(c.blanks))
	for _, b := range c.blanks {
		if filter.Scope != "" && b.Scope != filter.Scope {
			continue
		}
		if filter.Scope == ScopePolicy && filter.PolicyID != "" && b.PolicyID != filter.PolicyID {
			continue
		}
		out = append(out, b)
	}
	return out
}

// InScope returns common blanks followed by the policy's own blanks.
// An unknown policy has no blanks in scope.
func (c *Catalog) InScope(policyID string) []Blank {
	if _, ok := c.policyIx[policyID]; !ok {
		return []Blank{}
	}
	common := make([]Blank, 0, len(c.blanks))
	own := make([]Blank, 0)
	for _, b := range c.blanks {
		switch {
		case b.Scope == ScopeCommon:
			common = append(common, b)
		case b.PolicyID == policyID:
			own = append(own, b)
		}
	}
	return append(common, own...)
}

// Blank looks up a blank by id.
func (c *Catalog) Blank(id string) (Blank, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Blank{}, false
	}
	return c.blanks[i], true
}
