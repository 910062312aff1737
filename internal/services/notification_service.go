package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"

	"localharvest/internal/mail"
	"localharvest/internal/models"
	"localharvest/internal/repositories"

	"github.com/google/uuid"
)

// Publisher pushes a JSON envelope onto the durable notification queue.
// The rabbitmq client satisfies this.
type Publisher interface {
	Publish(body []byte) error
}

// Envelope kinds carried on the notification queue.
const (
	EnvelopeSold      = "sold"
	EnvelopeApplicant = "applicant"
	EnvelopeWelcome   = "welcome"
)

// NotificationEnvelope is the wire form of one notification batch. ID is
// the order id for sale batches, so the consumer can dedupe redelivered
// envelopes without double-mailing sellers.
type NotificationEnvelope struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Messages []mail.Message `json:"messages"`
}

// SoldItem identifies one purchased unit for seller notification.
type SoldItem struct {
	ProductID string  `json:"id"`
	Price     float64 `json:"price"`
}

// SoldResult reports how a sale batch was dispatched.
type SoldResult struct {
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
}

// NotificationService composes seller/applicant emails and hands them to
// the queue. Actual delivery happens in the consumer worker; everything
// here is fire-and-forget relative to order completion.
type NotificationService struct {
	productRepo repositories.ProductRepository
	publisher   Publisher
	accessCodes []string
}

// NewNotificationService creates a new NotificationService. accessCodes
// is the pool distributed through the contact-form flow.
func NewNotificationService(productRepo repositories.ProductRepository, publisher Publisher, accessCodes []string) *NotificationService {
	return &NotificationService{
		productRepo: productRepo,
		publisher:   publisher,
		accessCodes: accessCodes,
	}
}

// NotifySold queues one email per sold item to that item's
// seller-of-record. The seller email is looked up from the current
// product row, not trusted from the caller. A missing product or missing
// seller address is logged and skipped, never fatal for the batch.
func (s *NotificationService) NotifySold(orderID string, items []SoldItem, buyer models.DeliveryAddress) (*SoldResult, error) {
	result := &SoldResult{}
	var messages []mail.Message

	for _, item := range items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			log.Printf("Skipping sold notification for product %s: %v", item.ProductID, err)
			result.Skipped++
			continue
		}
		if product.SellerEmail == "" {
			log.Printf("No seller email found for product %s (ID: %s)", product.Name, product.ID)
			result.Skipped++
			continue
		}

		messages = append(messages, mail.Message{
			To:      product.SellerEmail,
			Subject: fmt.Sprintf("New Order: Your %q has been purchased!", product.Name),
			Body: fmt.Sprintf(
				"Great news! Your product %s has just been purchased.\n\n"+
					"Product: %s\nBuyer: %s\nDelivery Address: %s, %s, %s\nPrice: %.2f\n\n"+
					"Please prepare the item for pickup or delivery.\n",
				product.Name, product.Name, buyer.Name, buyer.Street, buyer.City, buyer.Zip, item.Price),
		})
		result.Queued++
	}

	if len(messages) == 0 {
		return result, nil
	}

	if err := s.publish(NotificationEnvelope{ID: orderID, Kind: EnvelopeSold, Messages: messages}); err != nil {
		return result, err
	}
	return result, nil
}

// NotifySoldFromCart adapts a finalized cart into a sold batch. Used by
// the checkout workflow.
func (s *NotificationService) NotifySoldFromCart(orderID string, items []models.CartItem, buyer models.DeliveryAddress) error {
	soldItems := make([]SoldItem, 0, len(items))
	for _, item := range items {
		soldItems = append(soldItems, SoldItem{ProductID: item.ProductID, Price: item.Price})
	}
	_, err := s.NotifySold(orderID, soldItems, buyer)
	return err
}

// NotifyApplicant picks one access code from the pool and emails it to a
// prospective seller.
func (s *NotificationService) NotifyApplicant(name, email string) error {
	if len(s.accessCodes) == 0 {
		return fmt.Errorf("no access codes configured")
	}
	code := s.accessCodes[rand.Intn(len(s.accessCodes))]

	envelope := NotificationEnvelope{
		ID:   uuid.New().String(),
		Kind: EnvelopeApplicant,
		Messages: []mail.Message{{
			To:      email,
			Subject: "Your Seller Access Code - Local Harvest",
			Body: fmt.Sprintf(
				"Hello %s,\n\nThank you for your interest in becoming a seller on Local Harvest.\n\n"+
					"Your Seller Access Code is: %s\n\n"+
					"Please use this code during signup to create your Producer account.\n\n"+
					"Best Regards,\nThe Local Harvest Team\n",
				name, code),
		}},
	}
	return s.publish(envelope)
}

// NotifyWelcome queues the post-signup welcome email.
func (s *NotificationService) NotifyWelcome(name, email, role string) error {
	envelope := NotificationEnvelope{
		ID:   uuid.New().String(),
		Kind: EnvelopeWelcome,
		Messages: []mail.Message{{
			To:      email,
			Subject: "Welcome to Local Harvest!",
			Body: fmt.Sprintf(
				"Hello %s,\n\nWelcome to Local Harvest! Your account has been created as a %s.\n\nBest,\nThe Team\n",
				name, role),
		}},
	}
	return s.publish(envelope)
}

func (s *NotificationService) publish(envelope NotificationEnvelope) error {
	if s.publisher == nil {
		log.Println("Notification publisher is not initialized. Skipping message publication.")
		return nil
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal notification envelope: %w", err)
	}
	if err := s.publisher.Publish(body); err != nil {
		return fmt.Errorf("failed to publish notification envelope %s: %w", envelope.ID, err)
	}
	return nil
}
