package exercise

import (
	"fmt"
	"time"
)

// Entry describes one exercise as offered to clients.
type Entry struct {
	Kind        Kind    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Options     Options `json:"-"`
	Enabled     bool    `json:"enabled"`
}

// Catalog is the read-only set of exercises a process serves. It is built
// once at startup and shared by every session.
type Catalog struct {
	entries map[Kind]Entry
}

// DefaultCatalog enables every Kind with the built-in names and opts. It
// panics if opts are invalid; use NewCatalog for options that are not known
// to be good.
func DefaultCatalog(opts Options) *Catalog {
	entries := make([]Entry, 0, len(kinds))
	for _, k := range kinds {
		entries = append(entries, Entry{
			Kind:        k,
			Name:        k.DisplayName(),
			Description: k.Description(),
			Options:     opts,
			Enabled:     true,
		})
	}
	c, err := NewCatalog(entries)
	if err != nil {
		panic(fmt.Sprintf("exercise: default catalog: %v", err))
	}
	return c
}

// NewCatalog validates entries. Unknown kinds are rejected; kinds missing
// from entries are simply unavailable.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{entries: make(map[Kind]Entry, len(entries))}
	for _, e := range entries {
		if _, err := ParseKind(string(e.Kind)); err != nil {
			return nil, err
		}
		if e.Kind.Stateful() {
			if err := e.Options.Validate(); err != nil {
				return nil, fmt.Errorf("exercise %s: %w", e.Kind, err)
			}
		}
		if e.Name == "" {
			e.Name = e.Kind.DisplayName()
		}
		c.entries[e.Kind] = e
	}
	return c, nil
}

// Lookup returns the enabled entry for k.
func (c *Catalog) Lookup(k Kind) (Entry, error) {
	e, ok := c.entries[k]
	if !ok || !e.Enabled {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownExercise, string(k))
	}
	return e, nil
}

// Resolve parses id and looks it up.
func (c *Catalog) Resolve(id string) (Entry, error) {
	k, err := ParseKind(id)
	if err != nil {
		return Entry{}, err
	}
	return c.Lookup(k)
}

// NewRule builds a fresh rule for k with the entry's options.
func (c *Catalog) NewRule(k Kind, now time.Time) (Rule, error) {
	e, err := c.Lookup(k)
	if err != nil {
		return nil, err
	}
	return NewRule(k, e.Options, now)
}

// Entries lists enabled entries in display order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, k := range kinds {
		if e, ok := c.entries[k]; ok && e.Enabled {
			out = append(out, e)
		}
	}
	return out
}
