package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// State is the load state of a Source.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "error"
	default:
		return "loading"
	}
}

// Source is the vector feature store behind one layer. Features are held
// in display projection.
type Source struct {
	features []*geojson.Feature
	state    State
	err      error
	revision int
}

// NewSource returns an empty source in the loading state.
func NewSource() *Source {
	return &Source{}
}

// Features returns the features in insertion order.
func (s *Source) Features() []*geojson.Feature {
	out := make([]*geojson.Feature, len(s.features))
	copy(out, s.features)
	return out
}

// Len is the number of features.
func (s *Source) Len() int { return len(s.features) }

// AddFeature appends one feature.
func (s *Source) AddFeature(f *geojson.Feature) {
	s.features = append(s.features, f)
	s.revision++
}

// AddFeatures appends features.
func (s *Source) AddFeatures(fs []*geojson.Feature) {
	s.features = append(s.features, fs...)
	s.revision++
}

// Clear drops every feature.
func (s *Source) Clear() {
	s.features = nil
	s.revision++
}

// Extent is the bound of all features. ok is false for an empty source.
func (s *Source) Extent() (b orb.Bound, ok bool) {
	for _, f := range s.features {
		if f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, ok
}

// SetState records the outcome of a load.
func (s *Source) SetState(st State, err error) {
	s.state, s.err = st, err
	s.revision++
}

// State is the current load state.
func (s *Source) State() State { return s.state }

// Err is the load error, if the source failed.
func (s *Source) Err() error { return s.err }

// Revision increases on every change.
func (s *Source) Revision() int { return s.revision }
