package chat

import "sync"

type ImageState int

const (
	Unresolved ImageState = iota
	Absent
	Present
)

func (s ImageState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unresolved"
	}
}

type imageEntry struct {
	ref   string
	state ImageState
}

// ImageCache memoizes profile images per user id for one map view.
// Entries never expire, absent images are cached as well.
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]imageEntry
}

func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]imageEntry)}
}

func (c *ImageCache) Get(userID string) (string, ImageState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[userID]
	if !ok {
		return "", Unresolved
	}
	return e.ref, e.state
}

func (c *ImageCache) Has(userID string) bool {
	_, state := c.Get(userID)
	return state != Unresolved
}

// Set stores an image reference, an empty ref is stored as absent
func (c *ImageCache) Set(userID, ref string) {
	if ref == "" {
		c.SetAbsent(userID)
		return
	}
	c.mu.Lock()
	c.entries[userID] = imageEntry{ref: ref, state: Present}
	c.mu.Unlock()
}

func (c *ImageCache) SetAbsent(userID string) {
	c.mu.Lock()
	c.entries[userID] = imageEntry{state: Absent}
	c.mu.Unlock()
}

func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
