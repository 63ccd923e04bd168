package domain

// ActivityKind classifies a feed event.
type ActivityKind string

const (
	ActivityTrialUsed     ActivityKind = "trial_used"
	ActivitySwapSubmitted ActivityKind = "swap_submitted"
	ActivityWaitlist      ActivityKind = "waitlist_joined"
	ActivityDemoEntered   ActivityKind = "demo_entered"
)

// ActivityEvent is an entry of the live activity feed.
// Corresponds to activity_events table in ClickHouse.
type ActivityEvent struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	Identity   string       `json:"identity"` // wallet, device or tg user
	Detail     string       `json:"detail"`
	OccurredAt int64        `json:"occurredAt"` // ms
}
