package messaging

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText = "text"
	MessageTypeLink = "link"
)

const (
	UploadTypeInitial  = "initial"
	UploadTypeDraft    = "draft"
	UploadTypeFinal    = "final"
	UploadTypeRevision = "revision"
)

// Message is an order-scoped message. AdminApproved gates visibility for the
// counter-party; the sender always sees their own messages.
type Message struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	OrderID       uuid.UUID  `db:"order_id" json:"order_id"`
	SenderID      uuid.UUID  `db:"sender_id" json:"sender_id"`
	SenderRole    string     `db:"sender_role" json:"sender_role"`
	RecipientID   *uuid.UUID `db:"recipient_id" json:"recipient_id,omitempty"`
	MessageType   string     `db:"message_type" json:"message_type"`
	Body          string     `db:"body" json:"body"`
	AdminApproved bool       `db:"admin_approved" json:"admin_approved"`
	DeliveredAt   *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Attachment records an uploaded file. UploaderRole is captured at creation
// time and never re-derived from the user record.
type Attachment struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	OrderID       uuid.UUID  `db:"order_id" json:"order_id"`
	UploadedBy    uuid.UUID  `db:"uploaded_by" json:"uploaded_by"`
	UploaderRole  string     `db:"uploader_role" json:"uploader_role"`
	UploadType    string     `db:"upload_type" json:"upload_type"`
	FileName      string     `db:"file_name" json:"file_name"`
	FileURL       string     `db:"file_url" json:"file_url"`
	FileSize      int64      `db:"file_size" json:"file_size"`
	FileType      string     `db:"file_type" json:"file_type"`
	AdminApproved bool       `db:"admin_approved" json:"admin_approved"`
	DeliveredAt   *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

func ValidUploadType(t string) bool {
	switch t {
	case UploadTypeInitial, UploadTypeDraft, UploadTypeFinal, UploadTypeRevision:
		return true
	}
	return false
}
