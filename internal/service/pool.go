package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type poolKey struct {
	class string
	id    string
}

// ResourcePool remembers discovered resource references per resource class so
// action families do not repeat discovery calls. One pool lives for the whole
// process and is shared by every cycle.
type ResourcePool struct {
	cache *expirable.LRU[poolKey, struct{}]
}

func NewResourcePool(capacity int, ttl time.Duration) *ResourcePool {
	return &ResourcePool{cache: expirable.NewLRU[poolKey, struct{}](capacity, nil, ttl)}
}

func (p *ResourcePool) Add(class string, ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		key := poolKey{class: class, id: id}
		if !p.cache.Contains(key) {
			p.cache.Add(key, struct{}{})
		}
	}
}

// Pick returns the least recently picked reference of class not rejected by
// skip, and marks it as most recently used.
func (p *ResourcePool) Pick(class string, skip func(id string) bool) (string, bool) {
	for _, key := range p.cache.Keys() {
		if key.class != class {
			continue
		}
		if skip != nil && skip(key.id) {
			continue
		}
		if _, ok := p.cache.Get(key); !ok {
			continue
		}
		return key.id, true
	}
	return "", false
}

func (p *ResourcePool) Remove(class, id string) {
	p.cache.Remove(poolKey{class: class, id: id})
}

func (p *ResourcePool) Len(class string) int {
	n := 0
	for _, key := range p.cache.Keys() {
		if key.class == class {
			n++
		}
	}
	return n
}
