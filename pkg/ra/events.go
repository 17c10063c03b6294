package ra

import "time"

// Statistic selects which field of a Stats record the search driver
// optimizes for.
type Statistic int

const (
	StatAIC Statistic = iota
	StatBIC
	StatLR
)

func (s Statistic) String() string {
	switch s {
	case StatAIC:
		return "AIC"
	case StatBIC:
		return "BIC"
	case StatLR:
		return "LR"
	default:
		return "unknown"
	}
}

// Value extracts the selected statistic from a Stats record.
func (s Statistic) Value(st Stats) float64 {
	switch s {
	case StatAIC:
		return st.AIC
	case StatBIC:
		return st.BIC
	case StatLR:
		return st.LR
	default:
		return st.AIC
	}
}

// SearchStarted fires once when a search begins.
type SearchStarted struct {
	TotalLevels   int
	StatisticName string
	Timestamp     time.Time
}

// SearchLevel fires after each beam-search level completes.
type SearchLevel struct {
	CurrentLevel         int
	TotalLevels          int
	TotalModelsEvaluated int
	BestModelName        string
	BestStatistic        float64
	StatisticName        string
	Timestamp            time.Time
}

// SearchComplete fires once when the search terminates.
type SearchComplete struct {
	TotalModelsEvaluated int
	BestModelName        string
	BestStatistic        float64
	StatisticName        string
	Timestamp            time.Time
}

// ProgressFunc is the callback surface for search progress events. It
// may be nil (no-op) and must be safe to call from multiple goroutines,
// since the driver treats it as its single synchronization point.
type ProgressFunc func(event interface{})
