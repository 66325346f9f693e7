package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"writehub/order-portal/order-portal-backend/internal/notifications/websocket"
)

const (
	ChannelEmail     = "EMAIL"
	ChannelWebSocket = "WEBSOCKET"

	StatusSent   = "SENT"
	StatusFailed = "FAILED"
)

// SentNotification is the persisted record of a delivery attempt, one row
// per recipient and channel.
type SentNotification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	Event     string         `json:"event" gorm:"not null;index"`
	Channel   string         `json:"channel" gorm:"not null"`
	Subject   string         `json:"subject" gorm:"not null"`
	Body      string         `json:"body" gorm:"not null"`
	Status    string         `json:"status" gorm:"not null"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	SentAt    *time.Time     `json:"sent_at"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// WebSocketMessage is the frame pushed to connected clients. The concrete
// type lives in the websocket package so the hub does not depend back on
// this one.
type WebSocketMessage = websocket.Message
