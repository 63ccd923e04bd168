package domain

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

const (
	CompetitionWaiting   CompetitionStatus = "waiting"
	CompetitionActive    CompetitionStatus = "active"
	CompetitionCompleted CompetitionStatus = "completed"
)

// Competition is a Battle Arena match. Demo entries carry no real funds.
type Competition struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	EntryFeeUSDC float64           `json:"entryFeeUsdc"`
	PrizePoolNAG float64           `json:"prizePoolNag"`
	Status       CompetitionStatus `json:"status"`
	IsDemo       bool              `json:"isDemo"`
	CreatedAt    int64             `json:"createdAt"` // ms
}

// Participant is a player entered in a competition.
type Participant struct {
	CompetitionID string `json:"competitionId"`
	Address       string `json:"address"`
	Score         *int   `json:"score,omitempty"`
	Placement     *int   `json:"placement,omitempty"`
	JoinedAt      int64  `json:"joinedAt"` // ms
}

// CompetitionEntry joins a competition with the caller's participation.
type CompetitionEntry struct {
	Competition Competition `json:"competition"`
	Participant Participant `json:"participant"`
}

// Demo metric names.
const (
	MetricDemoEntries       = "total_demo_entries"
	MetricSimulatedVolume   = "total_simulated_volume_usdc"
	MetricPopularModePrefix = "most_popular_mode_"
)
