package diagnostic

import (
	"sort"
	"sync"
)

// Sink receives published annotation lists.
// An empty list retracts everything previously published for path.
type Sink interface {
	Publish(path string, annotations []Annotation)
}

// Collection is the published annotation set, keyed by absolute path.
// Every write replaces the whole set; entries are never patched in place.
type Collection struct {
	mu   sync.Mutex
	sets map[string][]Annotation
	sink Sink
}

// NewCollection creates an empty collection. sink may be nil.
func NewCollection(sink Sink) *Collection {
	return &Collection{
		sets: make(map[string][]Annotation),
		sink: sink,
	}
}

// Replace swaps the entire published set for next.
// Paths that were published before but are missing from next are retracted.
func (c *Collection) Replace(next map[string][]Annotation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.sets
	c.sets = make(map[string][]Annotation, len(next))
	for path, list := range next {
		if len(list) == 0 {
			continue
		}
		c.sets[path] = append([]Annotation(nil), list...)
	}

	if c.sink == nil {
		return
	}
	for _, path := range sortedKeys(prev) {
		if _, ok := c.sets[path]; !ok {
			c.sink.Publish(path, []Annotation{})
		}
	}
	for _, path := range sortedKeys(c.sets) {
		c.sink.Publish(path, c.sets[path])
	}
}

// Clear retracts every published annotation.
func (c *Collection) Clear() {
	c.Replace(nil)
}

// Get returns a copy of the annotations published for path.
func (c *Collection) Get(path string) []Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Annotation(nil), c.sets[path]...)
}

// Paths returns the published paths in sorted order.
func (c *Collection) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.sets)
}

// Snapshot returns a copy of the whole published set.
func (c *Collection) Snapshot() map[string][]Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]Annotation, len(c.sets))
	for path, list := range c.sets {
		out[path] = append([]Annotation(nil), list...)
	}
	return out
}

// Len returns the total number of published annotations.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, list := range c.sets {
		n += len(list)
	}
	return n
}

func sortedKeys(m map[string][]Annotation) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
