package mq

import (
	"context"
	"encoding/json"
	"log"

	"toolhaus/rdx"
)

const ordersChannel = "order-events"

// OrderEvent is what gets published to store staff after an order
// transaction commits. Emission is best-effort: a publish failure is
// logged and swallowed, never propagated to the order caller.
type OrderEvent struct {
	Kind        string  `json:"kind"` // "order-placed", "order-cancelled"
	OrderID     string  `json:"order_id"`
	UserID      string  `json:"user_id"`
	TotalAmount float64 `json:"total_amount"`
	ItemCount   int     `json:"item_count"`
}

// Emit publishes an order event to Redis.
func Emit(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return rdx.Conn.Publish(ctx, ordersChannel, data).Err()
}

// EmitAsync fires an event without blocking the caller; failures are
// logged only.
func EmitAsync(event OrderEvent) {
	go func() {
		if err := Emit(context.Background(), event); err != nil {
			log.Printf("[mq] failed to publish %s for %s: %v", event.Kind, event.OrderID, err)
		}
	}()
}

// StartNotificationWorker consumes order events and notifies staff.
// Email dispatch is delegated to the configured SMTP relay in
// production; here the worker logs the notification line that the
// relay template is built from.
func StartNotificationWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, ordersChannel)
	ch := sub.Channel()

	log.Println("[NotificationWorker] Listening for order events...")

	for msg := range ch {
		var event OrderEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[NotificationWorker] Failed to parse event: %v", err)
			continue
		}
		log.Printf("[NotificationWorker] %s: order %s, %d item(s), total %.2f",
			event.Kind, event.OrderID, event.ItemCount, event.TotalAmount)
	}
}
