package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"localharvest/internal/mail"
)

// NotificationWorker consumes queued envelopes and performs the SMTP
// sends. Consumption is idempotent per envelope id: a redelivered sale
// batch is acked without mailing the sellers twice.
type NotificationWorker struct {
	mailer mail.Mailer
	mu     sync.Mutex
	seen   map[string]bool
}

// NewNotificationWorker creates a new NotificationWorker.
func NewNotificationWorker(mailer mail.Mailer) *NotificationWorker {
	return &NotificationWorker{
		mailer: mailer,
		seen:   make(map[string]bool),
	}
}

// Handle processes one queued envelope body. A malformed body is an
// error so the queue can dead-letter it; individual send failures are
// logged and counted, and the envelope only errors when every send
// failed.
func (w *NotificationWorker) Handle(body []byte) error {
	var envelope NotificationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal notification envelope: %w", err)
	}

	w.mu.Lock()
	if w.seen[envelope.ID] {
		w.mu.Unlock()
		log.Printf("Skipping already-processed notification envelope %s", envelope.ID)
		return nil
	}
	w.mu.Unlock()

	sent, failed := 0, 0
	for _, msg := range envelope.Messages {
		if err := w.mailer.Send(msg); err != nil {
			log.Printf("Failed to send %s notification to %s: %v", envelope.Kind, msg.To, err)
			failed++
			continue
		}
		sent++
	}
	log.Printf("Processed notification envelope %s (kind=%s sent=%d failed=%d)", envelope.ID, envelope.Kind, sent, failed)

	if sent == 0 && failed > 0 {
		// Leave the envelope unmarked so a redelivery retries the sends.
		return fmt.Errorf("all %d send(s) failed for envelope %s", failed, envelope.ID)
	}

	w.mu.Lock()
	w.seen[envelope.ID] = true
	w.mu.Unlock()
	return nil
}
