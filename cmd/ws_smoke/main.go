package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// ws_smoke connects two feed clients to a running server, posts a broadcast
// and checks that both receive it.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + port

	dial := func(name string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws", nil)
		if err != nil {
			log.Fatalf("dial %s: %v", name, err)
		}
		waitFor(conn, name, "ready")
		return conn
	}
	connA := dial("A")
	defer connA.Close()
	connB := dial("B")
	defer connB.Close()

	body, _ := json.Marshal(map[string]any{
		"action": "sendBroadcast",
		"data":   map[string]string{"message": fmt.Sprintf("smoke %d", time.Now().Unix()), "type": "info"},
	})
	res, err := http.Post("http://"+base+"/global", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post broadcast: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Fatalf("post broadcast: status %d", res.StatusCode)
	}

	waitFor(connA, "A", "broadcast")
	waitFor(connB, "B", "broadcast")

	log.Println("smoke test finished")
}

func waitFor(conn *websocket.Conn, name, msgType string) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("%s read error: %v", name, err)
		}
		var obj struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(msg, &obj)
		if obj.Type == msgType {
			log.Printf("%s got: %s", name, string(msg))
			return
		}
	}
	log.Fatalf("%s: no %q message before deadline", name, msgType)
}
