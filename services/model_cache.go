package services

import (
	"time"

	"github.com/patrickmn/go-cache"

	"tcm-diagnosis/diagnosis"
)

// ModelCache hält trainierte Modelle je Snapshot-Inhalt vor. Ein nil-Cache
// ist gültig und speichert nichts.
type ModelCache struct {
	c *cache.Cache
}

// NewModelCache liefert nil, wenn ttl <= 0 ist.
func NewModelCache(ttl time.Duration) *ModelCache {
	if ttl <= 0 {
		return nil
	}
	return &ModelCache{c: cache.New(ttl, ttl*2)}
}

func (m *ModelCache) Get(key string) (*diagnosis.Model, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	model, ok := v.(*diagnosis.Model)
	return model, ok
}

func (m *ModelCache) Set(key string, model *diagnosis.Model) {
	if m == nil {
		return
	}
	m.c.Set(key, model, cache.DefaultExpiration)
}

// Flush verwirft alle Modelle, z.B. nach Änderungen über die Admin-API.
func (m *ModelCache) Flush() {
	if m == nil {
		return
	}
	m.c.Flush()
}

func (m *ModelCache) Len() int {
	if m == nil {
		return 0
	}
	return m.c.ItemCount()
}
