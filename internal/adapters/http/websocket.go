package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/workradius/internal/adapters/nats"
	"github.com/samirrijal/workradius/internal/core/domain"
	"github.com/samirrijal/workradius/internal/core/usecases"
	"github.com/samirrijal/workradius/internal/pkg/metrics"
)

// wsRequest is sent by the client.
//
//	{"action":"locate","lat":37.77,"lon":-122.42,"radius_km":25,"seq":3}
//	{"action":"stop"}
type wsRequest struct {
	Action   string   `json:"action"` // "locate" | "stop"
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	RadiusKm *float64 `json:"radius_km"`
	Seq      int64    `json:"seq"`
}

// wsSuggestions answers a locate. Seq echoes the request so clients can
// discard answers to superseded locations.
type wsSuggestions struct {
	Type     string                    `json:"type"` // "suggestions"
	Seq      int64                     `json:"seq"`
	RadiusKm float64                   `json:"radius_km"`
	Jobs     []domain.RankedJobPosting `json:"jobs"`
}

// wsJobNearby is pushed when a posting is geotagged inside the client's radius.
type wsJobNearby struct {
	Type string                  `json:"type"` // "job_nearby"
	Job  domain.RankedJobPosting `json:"job"`
}

type wsStatus struct {
	Type    string `json:"type"` // "stopped" | "error"
	Seq     int64  `json:"seq,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	wsPingInterval    = 30 * time.Second
	wsSuggestTimeout  = 15 * time.Second
	geotaggedWildcard = natsadapter.SubjectGeotagged + ".>"
)

// matchNearby ranks a single geotagged posting against the client's last
// location. It reports false when the posting lies outside the radius.
func matchNearby(q *nearbyQuery, job domain.JobPosting) (domain.RankedJobPosting, bool) {
	ranked := usecases.RankByDistance(q.Seeker, []domain.JobPosting{job}, q.RadiusKm)
	if len(ranked) == 0 {
		return domain.RankedJobPosting{}, false
	}
	return ranked[0], true
}

// WebSocketHandler returns a handler serving the nearby-jobs feed.
// Each locate is answered with the current suggestions and then, while the
// connection is located, with every newly geotagged posting in range.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		log.Debug("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		var located atomic.Pointer[nearbyQuery]
		var sub *nats.Subscription
		unsubscribe := func() {
			if sub != nil {
				_ = sub.Unsubscribe()
				sub = nil
			}
		}
		defer unsubscribe()

		subscribe := func() {
			if sub != nil || deps.NATS == nil {
				return
			}
			s, err := deps.NATS.Subscribe(geotaggedWildcard, func(msg *nats.Msg) {
				q := located.Load()
				if q == nil {
					return
				}
				event, err := natsadapter.DecodeEvent(msg.Data)
				if err != nil {
					return
				}
				if ranked, ok := matchNearby(q, event.Job); ok {
					_ = writeJSON(wsJobNearby{Type: "job_nearby", Job: ranked})
				}
			})
			if err != nil {
				log.Warn("ws live feed unavailable", "error", err)
				return
			}
			sub = s
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
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

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var req wsRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				_ = writeJSON(wsStatus{Type: "error", Message: "invalid JSON"})
				continue
			}

			switch req.Action {
			case "locate":
				if req.Lat == nil || req.Lon == nil {
					_ = writeJSON(wsStatus{Type: "error", Seq: req.Seq, Message: errSeekerRequired.Error()})
					continue
				}
				q, err := newNearbyQuery(*req.Lat, *req.Lon, req.RadiusKm, deps.Suggestions.DefaultRadiusKm(), deps.MaxRadiusKm)
				if err != nil {
					_ = writeJSON(wsStatus{Type: "error", Seq: req.Seq, Message: err.Error()})
					continue
				}

				ctx, cancel := context.WithTimeout(context.Background(), wsSuggestTimeout)
				jobs, err := deps.Suggestions.SuggestJobs(ctx, q.Seeker, q.RadiusKm)
				cancel()
				if err != nil {
					log.Warn("ws suggest failed", "error", err)
					_ = writeJSON(wsStatus{Type: "error", Seq: req.Seq, Message: "job store unavailable, retry later"})
					continue
				}

				located.Store(&q)
				subscribe()
				_ = writeJSON(wsSuggestions{Type: "suggestions", Seq: req.Seq, RadiusKm: q.RadiusKm, Jobs: jobs})

			case "stop":
				located.Store(nil)
				unsubscribe()
				_ = writeJSON(wsStatus{Type: "stopped", Seq: req.Seq})

			default:
				_ = writeJSON(wsStatus{Type: "error", Seq: req.Seq, Message: "unknown action: " + req.Action})
			}
		}

		log.Debug("ws client disconnected")
	}
}
