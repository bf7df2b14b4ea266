package decode

import "sync"

// FlowDatas is the intermediate form between binary decoding and a
// flowrecord.Record: raw per-field bytes keyed by field type, as read off
// the wire and before any field-specific interpretation.
type FlowDatas map[uint16][]byte

// OptionsCache holds the most recently observed options data for each
// exporter, keyed by exporter IP alone — coarser than TemplateCacheKey by
// design, since options data is treated as exporter-global context rather
// than per-source-id context. Overwrites are unconditional: the last
// options data record received from an exporter wins, and there is no
// eviction.
type OptionsCache struct {
	mu      sync.RWMutex
	entries map[string]FlowDatas
}

// NewOptionsCache creates an empty cache.
func NewOptionsCache() *OptionsCache {
	return &OptionsCache{entries: make(map[string]FlowDatas)}
}

// Insert overwrites any prior options data for exporterIP.
func (c *OptionsCache) Insert(exporterIP string, datas FlowDatas) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[exporterIP] = datas
}

// Get returns the cached options data for exporterIP, if any.
func (c *OptionsCache) Get(exporterIP string) (FlowDatas, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	datas, ok := c.entries[exporterIP]
	return datas, ok
}

// Contains reports whether exporterIP has cached options data.
func (c *OptionsCache) Contains(exporterIP string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[exporterIP]
	return ok
}

// Len reports the number of exporters with cached options data. Exposed
// for the diagnostics HTTP surface.
func (c *OptionsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
