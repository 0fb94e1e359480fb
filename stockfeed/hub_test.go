package stockfeed

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "drill-01",
	}

	hub.register <- client

	hub.BroadcastStock("drill-01", 7)

	select {
	case got := <-client.Send:
		var update StockUpdate
		if err := json.Unmarshal(got, &update); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if update.Type != "stock_update" || update.ProductID != "drill-01" || update.StockCount != 7 {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.unregister <- client
}

func TestHubFirehoseRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{
		Send: make(chan []byte, 10),
		Room: "all",
	}
	hub.register <- client

	hub.BroadcastStock("saw-02", 3)

	select {
	case got := <-client.Send:
		var update StockUpdate
		if err := json.Unmarshal(got, &update); err != nil {
			t.Fatalf("invalid payload: %v", err)
		}
		if update.ProductID != "saw-02" {
			t.Fatalf("unexpected update: %+v", update)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	full := &Client{
		Send: make(chan []byte), // unbuffered, nobody reading
		Room: "drill-01",
	}
	healthy := &Client{
		Send: make(chan []byte, 10),
		Room: "drill-01",
	}
	hub.register <- full
	hub.register <- healthy

	hub.BroadcastStock("drill-01", 5)
	hub.BroadcastStock("drill-01", 4)

	select {
	case <-healthy.Send:
	case <-time.After(1 * time.Second):
		t.Fatal("healthy client starved by slow consumer")
	}
}
