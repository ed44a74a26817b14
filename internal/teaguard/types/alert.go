package types

import "time"

// AlertCategory names one class of emergency notification.
type AlertCategory string

const (
	AlertFire         AlertCategory = "FIRE EMERGENCY"
	AlertAccessDenied AlertCategory = "ACCESS DENIED"
	AlertMotion       AlertCategory = "MOTION DETECTED"
)

// IsFire reports whether this category also rings the live fire alarm on
// connected clients. Only fire does; every other category is
// notification-only.
func (c AlertCategory) IsFire() bool { return c == AlertFire }

// ChannelOutcome is one channel's share of a dispatch result.
type ChannelOutcome struct {
	Channel     string `json:"channel"`
	Succeeded   bool   `json:"succeeded"`
	ErrorDetail string `json:"errorDetail,omitempty"`
	MethodLabel string `json:"method"`
}

// DispatchResult aggregates the three channel outcomes of one alert
// dispatch. It is returned to the caller and never persisted.
type DispatchResult struct {
	Success      bool
	SuccessCount int
	Total        int
	PerChannel   map[string]ChannelOutcome
	OccurredAt   time.Time
}
