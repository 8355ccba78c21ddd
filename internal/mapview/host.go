package mapview

// Host owns the map for one mount cycle. Descendants must tolerate Map
// reporting false before Mount and after Unmount.
type Host struct {
	current    *Map
	generation int
}

// Mount builds a new map and publishes it once construction completes.
// Mounting an already mounted host replaces the map.
func (h *Host) Mount(cfg Config) *Map {
	if h.current != nil {
		h.Unmount()
	}
	h.generation++
	m := New(cfg, h.generation)
	h.current = m
	return m
}

// Unmount detaches the map from its target and withdraws it.
func (h *Host) Unmount() {
	if h.current == nil {
		return
	}
	h.current.Detach()
	h.current = nil
}

// Map returns the published map, if any.
func (h *Host) Map() (*Map, bool) {
	return h.current, h.current != nil
}

// Generation counts mount cycles so far.
func (h *Host) Generation() int { return h.generation }
