package database

import (
	"cmp"
	"slices"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Neighbor is a reference found close to a query embedding.
type Neighbor struct {
	IdentityID string
	Name       string
	Distance   float64
}

// SampleIndex is an approximate nearest-neighbour index over reference embeddings.
// It only backs the enrollment collision warning; recognition always matches exhaustively.
type SampleIndex struct {
	graph *hnsw.Graph[int]
	refs  []facematch.Reference // node key is the position in refs
	dim   int
	mu    sync.RWMutex
}

// NewSampleIndex creates an empty index.
func NewSampleIndex() *SampleIndex {
	return &SampleIndex{}
}

func newEuclideanGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents with refs.
func (s *SampleIndex) Build(refs facematch.ReferenceSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graph = newEuclideanGraph()
	s.refs = make([]facematch.Reference, 0, len(refs))
	s.dim = 0
	for _, ref := range refs {
		s.addLocked(ref)
	}
}

// Add inserts a single reference.
func (s *SampleIndex) Add(ref facematch.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graph == nil {
		s.graph = newEuclideanGraph()
	}
	s.addLocked(ref)
}

func (s *SampleIndex) addLocked(ref facematch.Reference) {
	if len(ref.Embedding) == 0 {
		return
	}
	// The graph requires a single dimension; references of another length are skipped.
	if s.dim == 0 {
		s.dim = len(ref.Embedding)
	} else if len(ref.Embedding) != s.dim {
		return
	}

	key := len(s.refs)
	s.refs = append(s.refs, ref)
	s.graph.Add(hnsw.MakeNode(key, ref.Embedding.Float32()))
}

// Len returns the number of indexed references.
func (s *SampleIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// Near returns references of identities other than excludeID that lie closer than maxDistance
// to query, nearest first, at most one entry per identity.
func (s *SampleIndex) Near(query facematch.Embedding, excludeID string, maxDistance float64, limit int) []Neighbor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph == nil || len(s.refs) == 0 || len(query) != s.dim || limit <= 0 {
		return nil
	}

	nodes := s.graph.Search(query.Float32(), limit*HNSWSearchMultiplier)

	seen := make(map[string]bool)
	var out []Neighbor
	for _, n := range nodes {
		ref := s.refs[n.Key]
		if ref.IdentityID == excludeID || seen[ref.IdentityID] {
			continue
		}
		// Exact distance on the original float64 vectors.
		d, err := facematch.EuclideanDistance(query, ref.Embedding)
		if err != nil || d >= maxDistance {
			continue
		}
		seen[ref.IdentityID] = true
		out = append(out, Neighbor{IdentityID: ref.IdentityID, Name: ref.Name, Distance: d})
		if len(out) == limit {
			break
		}
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	return out
}
