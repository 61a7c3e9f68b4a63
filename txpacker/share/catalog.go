// Package share serves bundles to other devices over QUIC and fetches them.
package share

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/protocol"
)

var (
	ErrNotFound  = errors.New("share: bundle not found")
	ErrEmptyName = errors.New("share: bundle name is empty")
)

// Catalog is the set of bundles a server offers, keyed by name.
type Catalog struct {
	mu      sync.RWMutex
	bundles map[string]*bundle.Bundle
}

func NewCatalog() *Catalog {
	return &Catalog{bundles: map[string]*bundle.Bundle{}}
}

// Announce adds bd under its header name, replacing any previous bundle.
func (c *Catalog) Announce(bd *bundle.Bundle) error {
	if strings.TrimSpace(bd.Header.Name) == "" {
		return ErrEmptyName
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundles[bd.Header.Name] = bd
	return nil
}

func (c *Catalog) Lookup(name string) (*bundle.Bundle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bd, ok := c.bundles[name]
	if !ok {
		return nil, ErrNotFound
	}
	return bd, nil
}

func (c *Catalog) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bundles, name)
}

// List returns the catalog entries sorted by name.
func (c *Catalog) List() []protocol.CatalogEntry {
	c.mu.RLock()
	out := make([]protocol.CatalogEntry, 0, len(c.bundles))
	for _, bd := range c.bundles {
		h := bd.Header
		out = append(out, protocol.CatalogEntry{
			Name:       h.Name,
			PackUUID:   h.PackUUID,
			Size:       h.Size,
			ChunkCount: h.ChunkCount,
			Sealed:     h.Sealed,
			Publisher:  h.Publisher,
		})
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b protocol.CatalogEntry) int { return strings.Compare(a.Name, b.Name) })
	return out
}
