// ws_client solves the bundled toy instance and prints the run events the
// API streams back over /v1/runs/stream.
package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m map[string]any
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %v", m["type"], m["data"])
		}
	}()

	time.Sleep(200 * time.Millisecond)
	body := []byte(`{"variant":"scf-route","instance":{"name":"toy","numDepots":1,"numCustomers":2,
"depotCapacities":[10],"depotOpeningCosts":[0],"customerDemands":[3,4],"vehicleCapacity":10,
"distanceMatrix":[[0,1,1],[1,0,1],[1,1,0]]}}`)
	resp, err := http.Post(base+"/v1/solve", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("solve: %s", resp.Status)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
