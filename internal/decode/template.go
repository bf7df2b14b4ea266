package decode

import "sync"

// Field is one (type, length) pair out of a v9 template.
type Field struct {
	Type   uint16
	Length uint16
}

// TemplateDefinition is what a data-template or options-template flowset
// installs into the TemplateCache.
type TemplateDefinition struct {
	Fields      []Field
	ScopeFields []Field
	IsOption    bool
}

// RecordSize returns the sum of the primary fields' declared lengths, plus
// the scope fields' lengths when this is an options template (scope fields
// are only read as part of an options data record).
func (t TemplateDefinition) RecordSize() int {
	size := 0
	for _, f := range t.Fields {
		size += int(f.Length)
	}
	if t.IsOption {
		for _, f := range t.ScopeFields {
			size += int(f.Length)
		}
	}
	return size
}

// TemplateCacheKey identifies one template: the same numeric template ID
// from two different exporters, or two different source IDs on the same
// exporter, are distinct entries.
type TemplateCacheKey struct {
	ExporterIP string
	SourceID   uint32
	TemplateID uint16
	Version    uint16
}

// TemplateCache is a process-lifetime, multi-reader/single-writer cache of
// template definitions. There is no eviction and no TTL: entries live until
// overwritten by a later template with the same key, or until the process
// exits.
type TemplateCache struct {
	mu      sync.RWMutex
	entries map[TemplateCacheKey]TemplateDefinition
}

// NewTemplateCache creates an empty cache.
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{entries: make(map[TemplateCacheKey]TemplateDefinition)}
}

// Insert overwrites any prior entry under key.
func (c *TemplateCache) Insert(key TemplateCacheKey, def TemplateDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = def
}

// Get returns the template under key, if any.
func (c *TemplateCache) Get(key TemplateCacheKey) (TemplateDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.entries[key]
	return def, ok
}

// Contains reports whether key has an entry, without copying the value.
func (c *TemplateCache) Contains(key TemplateCacheKey) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Len reports the number of distinct templates currently cached, across all
// exporters. Exposed for the diagnostics HTTP surface.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
