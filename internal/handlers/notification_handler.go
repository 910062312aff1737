package handlers

import (
	"log"

	"localharvest/internal/models"
	"localharvest/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// NotificationHandler handles the sold-notification and contact-form
// endpoints.
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		service: service,
	}
}

// RegisterRoutes registers the notification routes with the Fiber app.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/notifications/sold", h.HandleSold)
	router.Post("/contact", h.HandleContact)
}

// SoldRequest represents the request body for a sold-notification batch.
// OrderID keys the idempotent consumption of the batch; one is generated
// when the caller does not supply it.
type SoldRequest struct {
	OrderID      string                 `json:"orderId"`
	Items        []services.SoldItem    `json:"items"`
	BuyerDetails models.DeliveryAddress `json:"buyerDetails"`
}

// HandleSold queues a seller email per sold item. Seller addresses are
// looked up from the current product rows, never trusted from the
// client.
func (h *NotificationHandler) HandleSold(c *fiber.Ctx) error {
	var req SoldRequest
	if err := c.BodyParser(&req); err != nil || req.Items == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid items",
		})
	}

	if req.OrderID == "" {
		req.OrderID = uuid.New().String()
	}
	result, err := h.service.NotifySold(req.OrderID, req.Items, req.BuyerDetails)
	if err != nil {
		log.Printf("Notification error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to send notifications",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Notifications sent",
		"queued":  result.Queued,
		"skipped": result.Skipped,
	})
}

// ContactRequest represents the request body for the contact form.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// HandleContact emails a seller access code to an applicant.
func (h *NotificationHandler) HandleContact(c *fiber.Ctx) error {
	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "All fields are required",
		})
	}

	if err := h.service.NotifyApplicant(req.Name, req.Email); err != nil {
		log.Printf("Contact form error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send message",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Access code sent to your email!",
	})
}
