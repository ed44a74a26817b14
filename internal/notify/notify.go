// Package notify contains the delivery channels the alert dispatcher fans
// out to. Each channel is an independent failure domain: it reports its own
// success or failure and never aborts its siblings.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// Channel is one delivery mechanism for an emergency alert.
type Channel interface {
	// Name keys the channel's outcome in a dispatch result.
	Name() string
	// MethodLabel is the human-readable delivery mechanism description.
	MethodLabel() string
	// Send delivers one alert. A nil return means the channel succeeded;
	// the dispatcher turns any error (or timeout, or panic) into a failed
	// outcome for this channel only.
	Send(ctx context.Context, category types.AlertCategory, message string) error
}

// alertBody renders the plain-text body shared by the mail and SMS
// channels.
func alertBody(category types.AlertCategory, message, facility string, at time.Time) string {
	return fmt.Sprintf("TEA FACTORY ALERT\nType: %s\n%s\nTime: %s\nLocation: %s\nURGENT!",
		category, message, at.Format("15:04:05"), facility)
}
