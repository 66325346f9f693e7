package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"writehub/order-portal/order-portal-backend/internal/notifications/websocket"
	"writehub/order-portal/order-portal-backend/internal/users"
)

// template pairs an email subject with a body. The order code from the
// payload is appended where the body references it.
type template struct {
	subject string
	body    string
}

var eventTemplates = map[string]template{
	"order.created":         {"Order received", "Your order %s has been received and is awaiting review."},
	"order.status_changed":  {"Order update", "Order %s changed status."},
	"order.assigned":        {"New assignment", "You have been assigned to order %s."},
	"order.unassigned":      {"Assignment removed", "You are no longer assigned to order %s."},
	"order.editor_assigned": {"Review assignment", "You have been assigned to review order %s."},
	"payment.submitted":     {"Payment received", "A payment for order %s is awaiting confirmation."},
	"payment.confirmed":     {"Payment confirmed", "The payment for order %s was confirmed and your balance has been updated."},
	"message.delivered":     {"New message", "A new message is available on order %s."},
	"attachment.delivered":  {"New file", "A new file is available on order %s."},
	"deadline.approaching":  {"Deadline approaching", "The working deadline for order %s is less than 24 hours away."},
}

// payload keys that name notification recipients.
var recipientKeys = []string{"client_id", "freelancer_id", "manager_id", "user_id"}

// Service fans events out to email, the websocket hub, and a persistent
// sent-notification log. Every path is best-effort: a failed delivery is
// recorded and logged, never returned to the caller.
type Service struct {
	db     *gorm.DB
	hub    *websocket.Hub
	email  EmailSender
	users  users.Repository
	logger *zap.Logger
}

func NewService(db *gorm.DB, hub *websocket.Hub, email EmailSender, userRepo users.Repository, logger *zap.Logger) (*Service, error) {
	if err := db.AutoMigrate(&SentNotification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate notification tables: %w", err)
	}
	return &Service{
		db:     db,
		hub:    hub,
		email:  email,
		users:  userRepo,
		logger: logger,
	}, nil
}

// Notify resolves recipients from the payload and delivers the event on all
// channels. Callers fire and forget.
func (s *Service) Notify(ctx context.Context, event string, payload map[string]interface{}) {
	tmpl, ok := eventTemplates[event]
	if !ok {
		s.logger.Warn("no template for notification event", zap.String("event", event))
		return
	}

	orderCode, _ := payload["order_code"].(string)
	subject := tmpl.subject
	body := fmt.Sprintf(tmpl.body, orderCode)
	raw, _ := json.Marshal(payload)
	metadata := datatypes.JSON(raw)

	for _, userID := range s.resolveRecipients(payload) {
		s.deliverEmail(ctx, userID, event, subject, body, metadata)
		s.deliverWebSocket(userID, event, payload, metadata, subject, body)
	}
}

func (s *Service) resolveRecipients(payload map[string]interface{}) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var recipients []uuid.UUID
	for _, key := range recipientKeys {
		raw, ok := payload[key].(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	return recipients
}

func (s *Service) deliverEmail(ctx context.Context, userID uuid.UUID, event, subject, body string, metadata datatypes.JSON) {
	record := &SentNotification{
		ID:       uuid.New(),
		UserID:   userID,
		Event:    event,
		Channel:  ChannelEmail,
		Subject:  subject,
		Body:     body,
		Status:   StatusFailed,
		Metadata: metadata,
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		s.logger.Warn("notification recipient lookup failed",
			zap.String("user_id", userID.String()), zap.Error(err))
		s.db.WithContext(ctx).Create(record)
		return
	}

	if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("email delivery failed",
			zap.String("event", event),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	} else {
		now := time.Now()
		record.Status = StatusSent
		record.SentAt = &now
	}
	s.db.WithContext(ctx).Create(record)
}

func (s *Service) deliverWebSocket(userID uuid.UUID, event string, payload map[string]interface{}, metadata datatypes.JSON, subject, body string) {
	msg := WebSocketMessage{
		Type:      "notification",
		Event:     event,
		Data:      payload,
		Timestamp: time.Now(),
	}

	record := &SentNotification{
		ID:       uuid.New(),
		UserID:   userID,
		Event:    event,
		Channel:  ChannelWebSocket,
		Subject:  subject,
		Body:     body,
		Status:   StatusSent,
		Metadata: metadata,
	}
	if err := s.hub.SendToUser(userID.String(), msg); err != nil {
		// Not connected. Normal, the email copy still lands.
		record.Status = StatusFailed
	} else {
		now := time.Now()
		record.SentAt = &now
	}
	s.db.Create(record)
}

// ListForUser returns the user's notification feed, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]SentNotification, error) {
	var items []SentNotification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	return items, nil
}
