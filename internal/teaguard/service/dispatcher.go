package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/broadcast"
	"github.com/craigfactory/teaguard/internal/metrics"
	"github.com/craigfactory/teaguard/internal/notify"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// Dispatcher fans one alert out to every notification channel concurrently.
// Each channel is an isolated failure domain: an error, timeout, or panic
// in one produces a failed outcome for that channel and nothing else. A
// dispatch always returns a result for every channel and never an error.
type Dispatcher struct {
	channels       []notify.Channel
	hub            *broadcast.Hub
	channelTimeout time.Duration
	logger         *zap.Logger
}

func NewDispatcher(channels []notify.Channel, hub *broadcast.Hub, channelTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 15 * time.Second
	}
	return &Dispatcher{
		channels:       channels,
		hub:            hub,
		channelTimeout: channelTimeout,
		logger:         logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, category types.AlertCategory, message string) types.DispatchResult {
	now := time.Now().UTC()
	metrics.AlertDispatchesTotal.WithLabelValues(string(category)).Inc()

	outcomes := make([]types.ChannelOutcome, len(d.channels))

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		wg.Add(1)
		go func(i int, ch notify.Channel) {
			defer wg.Done()
			outcomes[i] = d.drive(ctx, ch, category, message)
		}(i, ch)
	}
	wg.Wait()

	result := types.DispatchResult{
		Total:      len(d.channels),
		PerChannel: make(map[string]types.ChannelOutcome, len(d.channels)),
		OccurredAt: now,
	}
	for _, o := range outcomes {
		result.PerChannel[o.Channel] = o
		if o.Succeeded {
			result.SuccessCount++
		}
	}
	result.Success = result.SuccessCount > 0

	d.logger.Info("alert dispatched",
		zap.String("category", string(category)),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("total", result.Total))

	// Only the fire category rings the live alarm on connected clients.
	if category.IsFire() {
		d.hub.Publish(broadcast.FireEvent{Triggered: true, OccurredAt: now})
	}

	return result
}

// drive runs one channel under its timeout, converting error, expiry and
// panic into this channel's outcome.
func (d *Dispatcher) drive(ctx context.Context, ch notify.Channel, category types.AlertCategory, message string) (out types.ChannelOutcome) {
	out = types.ChannelOutcome{
		Channel:     ch.Name(),
		MethodLabel: ch.MethodLabel(),
	}

	defer func() {
		if r := recover(); r != nil {
			out.Succeeded = false
			out.ErrorDetail = fmt.Sprintf("panic: %v", r)
			d.logger.Error("notification channel panicked",
				zap.String("channel", ch.Name()), zap.Any("panic", r))
		}
		status := "ok"
		if !out.Succeeded {
			status = "error"
		}
		metrics.AlertChannelSendsTotal.WithLabelValues(ch.Name(), status).Inc()
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	if err := ch.Send(sendCtx, category, message); err != nil {
		out.Succeeded = false
		out.ErrorDetail = err.Error()
		d.logger.Warn("notification channel failed",
			zap.String("channel", ch.Name()), zap.Error(err))
		return out
	}

	out.Succeeded = true
	return out
}
