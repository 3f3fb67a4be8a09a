package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/srimap/internal/core/domain"
	"github.com/samirrijal/srimap/internal/core/usecases"
	"github.com/samirrijal/srimap/internal/pkg/metrics"
)

// wsInbound is a client frame.
//
//	{"type":"message","text":"any floods near me?"}
//	{"type":"location","lat":6.93,"lon":79.85,"accuracy":20}
//	{"type":"location"}  clears the location
type wsInbound struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	Accuracy float64  `json:"accuracy,omitempty"`
}

// wsOutbound is a server frame.
type wsOutbound struct {
	Type    string        `json:"type"` // session | reply | location | error
	Session string        `json:"session,omitempty"`
	Reply   *domain.Reply `json:"reply,omitempty"`
	Status  string        `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
}

// ChatWebSocketHandler runs one chat session per connection. Messages are
// answered concurrently with the read loop so that a message sent while
// another is being answered gets the session's busy reply.
func ChatWebSocketHandler(chat *usecases.ChatService) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		sess := chat.Open(nil)
		defer chat.Close(sess.ID())

		log := slog.Default().With("session", sess.ID(), "remote", c.RemoteAddr().String())
		log.Info("ws chat connected")

		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
			log.Info("ws chat disconnected")
		}()

		var mu sync.Mutex
		writeJSON := func(v wsOutbound) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		_ = writeJSON(wsOutbound{Type: "session", Session: sess.ID()})

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var in wsInbound
			if err := json.Unmarshal(msg, &in); err != nil {
				_ = writeJSON(wsOutbound{Type: "error", Message: "invalid JSON"})
				continue
			}

			switch in.Type {
			case "message":
				wg.Add(1)
				go func(text string) {
					defer wg.Done()
					reply, err := sess.Ask(ctx, text)
					if errors.Is(err, domain.ErrEmptyMessage) {
						_ = writeJSON(wsOutbound{Type: "error", Message: err.Error()})
						return
					}
					if err != nil {
						log.Error("ws ask failed", "error", err)
						_ = writeJSON(wsOutbound{Type: "error", Message: "internal error"})
						return
					}
					_ = writeJSON(wsOutbound{Type: "reply", Reply: &reply})
				}(in.Text)

			case "location":
				if in.Lat == nil && in.Lon == nil {
					sess.ClearLocation()
					_ = writeJSON(wsOutbound{Type: "location", Status: "cleared"})
					continue
				}
				body := locationBody{Lat: in.Lat, Lon: in.Lon, Accuracy: in.Accuracy}
				loc, ok := body.toDomain()
				if !ok {
					_ = writeJSON(wsOutbound{Type: "error", Message: "lat and lon must both be set and in range"})
					continue
				}
				sess.SetLocation(loc)
				_ = writeJSON(wsOutbound{Type: "location", Status: "ok"})

			default:
				_ = writeJSON(wsOutbound{Type: "error", Message: "unknown type: " + in.Type})
			}
		}
	}
}
