// Package main runs a demo client against the optimization session websocket.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Pick a vehicle and some premises from the seeded catalog.
	var cat struct {
		Premises []struct {
			ID string `json:"id"`
		} `json:"premises"`
	}
	if err := getJSON(base+"/v1/premises", &cat); err != nil {
		log.Fatal(err)
	}
	var fleet struct {
		Vehicles []struct {
			ID string `json:"id"`
		} `json:"vehicles"`
	}
	if err := getJSON(base+"/v1/vehicles", &fleet); err != nil {
		log.Fatal(err)
	}
	if len(cat.Premises) < 2 || len(fleet.Vehicles) == 0 {
		log.Fatal("catalog not seeded")
	}
	ids := []string{cat.Premises[0].ID, cat.Premises[1].ID}
	vehicleID := fleet.Vehicles[len(fleet.Vehicles)-1].ID
	log.Printf("premises %v, vehicle %s", ids, vehicleID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/optimize/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s seq=%d: %s", m.Type, m.Seq, string(m.Payload))
		}
	}()

	// Fire two requests back to back: the second supersedes the first, so the
	// server may answer the first with "superseded".
	send := func(id, mode string) {
		payload, _ := json.Marshal(map[string]any{
			"premiseIds": ids,
			"vehicleId":  vehicleID,
			"mode":       mode,
		})
		if err := c.WriteJSON(wsMessage{Type: "optimize", ID: id, Payload: payload}); err != nil {
			log.Fatal(err)
		}
	}
	send("1", "cheapest")
	send("2", "balanced")

	time.Sleep(time.Second)
	if err := c.WriteJSON(wsMessage{Type: "state"}); err != nil {
		log.Fatal(err)
	}

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}

func getJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(v)
}
