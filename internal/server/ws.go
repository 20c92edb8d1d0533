package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsAction is a control message from the client.
type wsAction struct {
	Action string `json:"action"`
}

// handleWS upgrades the connection and serves it until the client goes
// away. Clients can push raw log blobs for immediate analysis or drive
// the built-in simulator with start_simulation / stop_simulation actions.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn)
	s.hub.register(c)
	go c.writeLoop()

	defer func() {
		s.hub.unregister(c)
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var stopSim context.CancelFunc
	defer func() {
		if stopSim != nil {
			stopSim()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var action wsAction
		if err := json.Unmarshal(data, &action); err == nil && action.Action != "" {
			switch action.Action {
			case "start_simulation":
				if stopSim == nil {
					var simCtx context.Context
					simCtx, stopSim = context.WithCancel(ctx)
					go s.runSimulation(simCtx, c)
				}
			case "stop_simulation":
				if stopSim != nil {
					stopSim()
					stopSim = nil
				}
				c.sendJSON(map[string]string{"status": "simulation_stopped"})
			}
			continue
		}

		// Anything else is a raw log blob.
		s.processBlob(ctx, c, string(data))
	}
}

// processBlob analyzes a pushed log blob and replies with any anomalies.
func (s *Server) processBlob(ctx context.Context, c *client, blob string) {
	if strings.TrimSpace(blob) == "" {
		return
	}
	records := s.processor.Process(ctx, blob)
	if len(records) > 0 {
		c.sendJSON(records)
	}
}

// runSimulation feeds simulated log batches through the full pipeline
// until cancelled: raw logs and anomalies are persisted, anomalies go
// back to the requesting client.
func (s *Server) runSimulation(ctx context.Context, c *client) {
	for {
		batch := s.sim.Batch(1+rand.Intn(5), true)

		if err := s.store.StoreRawLogs(ctx, batch); err != nil {
			s.logger.Warn("storing simulated logs failed", zap.Error(err))
		}
		records := s.processor.Process(ctx, strings.Join(batch, "\n"))
		if len(records) > 0 {
			if err := s.store.StoreAnomalies(ctx, records); err != nil {
				s.logger.Warn("storing simulated anomalies failed", zap.Error(err))
			}
			c.sendJSON(records)
		}

		delay := time.Second + time.Duration(rand.Int63n(int64(2*time.Second)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
