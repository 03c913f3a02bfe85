package ignorelist

// Stats reports lightweight list metrics.
// All fields are best-effort snapshots and may be updated concurrently.
type Stats struct {
	Rules     int    // number of distinct rules loaded
	CacheSize int    // current number of cached decisions
	Hits      uint64 // decision cache hits since construction
	Misses    uint64 // decision cache misses since construction
	Evictions uint64 // decision cache evictions since construction
}
