package domain

import "time"

type ActionType string

const (
	ActionLike          ActionType = "like"
	ActionFollow        ActionType = "follow"
	ActionUnfollow      ActionType = "unfollow"
	ActionComment       ActionType = "comment"
	ActionPost          ActionType = "post"
	ActionDirectMessage ActionType = "direct_message"
	ActionRead          ActionType = "read"
)

// ActionRecord is one attempted automated action. Error is set iff Success
// is false.
type ActionRecord struct {
	Type      ActionType
	Timestamp time.Time
	Success   bool
	Error     string
}

type TypeStats struct {
	Total       int
	Successful  int
	SuccessRate float64
}

type Stats struct {
	TotalActions       int
	SuccessfulActions  int
	OverallSuccessRate float64
	ByType             map[ActionType]TypeStats
	LastAction         time.Time
}

// SuccessRate returns successful/total as a percentage, 0 when total is 0.
func SuccessRate(successful, total int) float64 {
	if total <= 0 {
		return 0
	}

	return float64(successful) / float64(total) * 100
}
