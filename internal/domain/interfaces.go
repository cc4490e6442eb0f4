package domain

// HoldingsFeed is a source of current holdings for one brokerage or account.
// Implementations live at the collaborator boundary and convert loosely-typed
// API payloads into the fixed HoldingsBatch shape.
type HoldingsFeed interface {
	// Name identifies the feed in logs.
	Name() string
	// Fetch refreshes holdings on demand. Failures are reported as
	// *ExternalFetchError so the capture cycle can degrade per feed.
	Fetch() (HoldingsBatch, error)
}

// BenchmarkSource looks up benchmark index series. It is best-effort and
// cacheable; the engine treats every failure as a missing value.
type BenchmarkSource interface {
	// GetSeries returns the sparse date -> close mapping for the index over
	// [start, end], both YYYY-MM-DD inclusive.
	GetSeries(index BenchmarkIndex, start, end string) (BenchmarkSeries, error)
	// LatestClose returns the most recent closing value for the index.
	LatestClose(index BenchmarkIndex) (float64, error)
}
