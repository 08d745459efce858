package database

// Collision index tuning.
const (
	// HNSWMaxNeighbors is the graph degree (M). Face galleries are small, 16 keeps recall near exact.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier over-fetches candidates so the enrolling identity's own samples
	// can be dropped without starving the result.
	HNSWSearchMultiplier = 3
)
