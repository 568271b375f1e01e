package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fleetroute/internal/model"
	"fleetroute/internal/route"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SessionWSHandler handles /v1/optimize/ws: an interactive optimization
// session for one dashboard client. Each "optimize" message starts a new
// computation; when a newer request arrives before an older one finishes, the
// older result is discarded rather than flashed at the user (last-request-wins).
func (s *Server) SessionWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	// Completions arrive from worker goroutines; serialize writes.
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(v)
	}

	sess := route.NewSession()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "optimize":
			var req model.OptimizeRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: errPayload(err)})
				continue
			}
			seq := sess.Begin()
			_ = write(wsMessage{Type: "accepted", ID: msg.ID, Seq: seq})
			go func(id string, seq uint64, req model.OptimizeRequest) {
				rt, err := s.optimize(r, req)
				var applied bool
				if err != nil {
					applied = sess.Apply(seq, nil, err)
				} else {
					applied = sess.Apply(seq, &rt, nil)
				}
				if !applied {
					_ = write(wsMessage{Type: "superseded", ID: id, Seq: seq})
					return
				}
				if err != nil {
					_ = write(wsMessage{Type: "error", ID: id, Seq: seq, Payload: errPayload(err)})
					return
				}
				payload, _ := json.Marshal(rt)
				_ = write(wsMessage{Type: "result", ID: id, Seq: seq, Payload: payload})
			}(msg.ID, seq, req)
		case "state":
			state, seq, rt, serr := sess.Latest()
			body := map[string]any{"state": state}
			if rt != nil {
				body["route"] = rt
			}
			if serr != nil {
				body["error"] = serr.Error()
			}
			payload, _ := json.Marshal(body)
			_ = write(wsMessage{Type: "state", ID: msg.ID, Seq: seq, Payload: payload})
		default:
			// ignore
		}
	}
}

func errPayload(err error) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"message": err.Error()})
	return b
}
