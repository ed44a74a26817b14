package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other local ports in dev; origin policy
	// is enforced upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsAlarmFrame is the JSON frame pushed to every connected client when the
// fire alarm fires.
type wsAlarmFrame struct {
	Type      string `json:"type"`
	Triggered bool   `json:"triggered"`
	AlertTime string `json:"alertTime"`
}

// handleAlarmSocket upgrades the connection and bridges it onto the
// broadcast hub. Each connection is one subscriber; events published before
// the upgrade are never replayed.
func (s *Server) handleAlarmSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := s.hub.Subscribe()
	metrics.LiveSubscribers.Inc()
	s.logger.Info("alarm client connected", zap.String("subscriber", sub.ID.String()))

	defer func() {
		s.hub.Unsubscribe(sub)
		metrics.LiveSubscribers.Dec()
		_ = conn.Close()
		s.logger.Info("alarm client disconnected", zap.String("subscriber", sub.ID.String()))
	}()

	// Clients never send application data; the read pump only surfaces
	// disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsAlarmFrame{
				Type:      "fire-alarm",
				Triggered: event.Triggered,
				AlertTime: event.OccurredAt.Format(time.RFC3339),
			}); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
