package clientdata

import "time"

// TTL constants for cached external data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Benchmark closes only change once per trading day.
	TTLBenchmarkSeries = 12 * time.Hour

	// Exchange rates drift intraday but captures run at most twice a day.
	TTLExchangeRate = time.Hour
)
