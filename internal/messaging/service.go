package messaging

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/orders"
	"writehub/order-portal/order-portal-backend/internal/users"
	"writehub/order-portal/order-portal-backend/pkg/storage"
)

// Service enforces the admin-approval gate on order messages and attachments.
type Service struct {
	repo     Repository
	orders   orders.Repository
	storage  storage.S3Client
	bucket   string
	notifier orders.Notifier
	logger   *zap.Logger
}

func NewService(repo Repository, orderRepo orders.Repository, s3 storage.S3Client, bucket string, notifier orders.Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		orders:   orderRepo,
		storage:  s3,
		bucket:   bucket,
		notifier: notifier,
		logger:   logger,
	}
}

type PostMessageRequest struct {
	Message     string     `json:"message" binding:"required"`
	RecipientID *uuid.UUID `json:"recipient_id"`
	MessageType string     `json:"message_type"`
	AutoApprove bool       `json:"auto_approve"`
}

// PostMessage stores a message on an order. Messages start unapproved and
// invisible to the counter-party, with two exceptions: privileged senders may
// request auto-approval, and link messages carrying a valid URL are approved
// immediately regardless of sender.
func (s *Service) PostMessage(ctx context.Context, orderID, senderID uuid.UUID, senderRole string, req PostMessageRequest) (*Message, error) {
	order, err := s.loadOrder(ctx, orderID, senderID, senderRole)
	if err != nil {
		return nil, err
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = MessageTypeText
	}
	if messageType != MessageTypeText && messageType != MessageTypeLink {
		return nil, apperr.Validation("unknown message type %q", messageType)
	}

	approved := false
	switch {
	case users.IsPrivileged(senderRole) && req.AutoApprove:
		approved = true
	case messageType == MessageTypeLink && isValidURL(req.Message):
		approved = true
	case messageType == MessageTypeLink:
		return nil, apperr.Validation("link messages must carry a valid http(s) URL")
	}

	msg := &Message{
		ID:            uuid.New(),
		OrderID:       orderID,
		SenderID:      senderID,
		SenderRole:    senderRole,
		RecipientID:   req.RecipientID,
		MessageType:   messageType,
		Body:          req.Message,
		AdminApproved: approved,
	}
	if approved {
		now := time.Now()
		msg.DeliveredAt = &now
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("message posted",
		zap.String("order_id", orderID.String()),
		zap.String("sender_role", senderRole),
		zap.Bool("approved", approved))

	if approved {
		s.notifier.Notify(ctx, "message.delivered", map[string]interface{}{
			"order_id":   orderID.String(),
			"order_code": order.OrderCode,
			"message_id": msg.ID.String(),
		})
	}
	return msg, nil
}

// ListMessages returns the order's thread filtered by visibility: staff see
// everything, other parties see approved messages plus their own.
func (s *Service) ListMessages(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) ([]Message, error) {
	if _, err := s.loadOrder(ctx, orderID, actorID, actorRole); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if users.IsStaff(actorRole) {
		return messages, nil
	}

	visible := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.AdminApproved || m.SenderID == actorID {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// DeliverMessage approves a pending message. Re-delivering an approved
// message is a no-op success.
func (s *Service) DeliverMessage(ctx context.Context, orderID, messageID uuid.UUID, actorRole string) (*Message, error) {
	if !users.IsPrivileged(actorRole) {
		return nil, apperr.Forbidden("role %q may not deliver messages", actorRole)
	}

	msg, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.OrderID != orderID {
		return nil, apperr.NotFound("message %s not found on this order", messageID)
	}
	if msg.AdminApproved {
		return msg, nil
	}

	if _, err := s.repo.DeliverMessage(ctx, messageID); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, "message.delivered", map[string]interface{}{
		"order_id":   orderID.String(),
		"message_id": messageID.String(),
	})
	return s.repo.GetMessageByID(ctx, messageID)
}

type AttachmentMeta struct {
	FileName   string `json:"file_name" binding:"required"`
	FileURL    string `json:"file_url"`
	FileSize   int64  `json:"file_size"`
	FileType   string `json:"file_type"`
	UploadType string `json:"upload_type" binding:"required"`
}

// UploadAttachment streams the file to blob storage and then persists its
// metadata. The two phases are not compensated: a metadata failure after a
// successful upload is returned to the caller with the orphaned object left
// in place.
func (s *Service) UploadAttachment(ctx context.Context, orderID, actorID uuid.UUID, actorRole string, meta AttachmentMeta, body io.Reader) (*Attachment, error) {
	if _, err := s.loadOrder(ctx, orderID, actorID, actorRole); err != nil {
		return nil, err
	}
	if !ValidUploadType(meta.UploadType) {
		return nil, apperr.Validation("unknown upload type %q", meta.UploadType)
	}

	key := fmt.Sprintf("orders/%s/attachments/%s%s", orderID, uuid.New(), path.Ext(meta.FileName))
	if err := s.storage.Upload(ctx, s.bucket, key, body); err != nil {
		return nil, apperr.Upstream("blob upload failed", err)
	}
	meta.FileURL = s.storage.ObjectURL(s.bucket, key)

	return s.persistAttachment(ctx, orderID, actorID, actorRole, meta)
}

// RegisterAttachment persists metadata for a file already uploaded elsewhere.
func (s *Service) RegisterAttachment(ctx context.Context, orderID, actorID uuid.UUID, actorRole string, meta AttachmentMeta) (*Attachment, error) {
	if _, err := s.loadOrder(ctx, orderID, actorID, actorRole); err != nil {
		return nil, err
	}
	if !ValidUploadType(meta.UploadType) {
		return nil, apperr.Validation("unknown upload type %q", meta.UploadType)
	}
	if !isValidURL(meta.FileURL) {
		return nil, apperr.Validation("file_url must be a valid http(s) URL")
	}
	return s.persistAttachment(ctx, orderID, actorID, actorRole, meta)
}

func (s *Service) persistAttachment(ctx context.Context, orderID, actorID uuid.UUID, actorRole string, meta AttachmentMeta) (*Attachment, error) {
	att := &Attachment{
		ID:            uuid.New(),
		OrderID:       orderID,
		UploadedBy:    actorID,
		UploaderRole:  actorRole,
		UploadType:    meta.UploadType,
		FileName:      meta.FileName,
		FileURL:       meta.FileURL,
		FileSize:      meta.FileSize,
		FileType:      meta.FileType,
		AdminApproved: users.IsPrivileged(actorRole),
	}
	if att.AdminApproved {
		now := time.Now()
		att.DeliveredAt = &now
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		return nil, err
	}

	s.logger.Info("attachment stored",
		zap.String("order_id", orderID.String()),
		zap.String("upload_type", att.UploadType),
		zap.String("uploader_role", att.UploaderRole))
	return att, nil
}

// ListAttachments applies the same visibility rule as messages.
func (s *Service) ListAttachments(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) ([]Attachment, error) {
	if _, err := s.loadOrder(ctx, orderID, actorID, actorRole); err != nil {
		return nil, err
	}

	attachments, err := s.repo.ListAttachments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if users.IsStaff(actorRole) {
		return attachments, nil
	}

	visible := make([]Attachment, 0, len(attachments))
	for _, a := range attachments {
		if a.AdminApproved || a.UploadedBy == actorID {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// DeliverAttachment approves a pending attachment for the counter-party.
func (s *Service) DeliverAttachment(ctx context.Context, orderID, attachmentID uuid.UUID, actorRole string) (*Attachment, error) {
	if !users.IsPrivileged(actorRole) {
		return nil, apperr.Forbidden("role %q may not deliver attachments", actorRole)
	}

	att, err := s.repo.GetAttachmentByID(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if att == nil || att.OrderID != orderID {
		return nil, apperr.NotFound("attachment %s not found on this order", attachmentID)
	}
	if att.AdminApproved {
		return att, nil
	}

	if _, err := s.repo.DeliverAttachment(ctx, attachmentID); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, "attachment.delivered", map[string]interface{}{
		"order_id":      orderID.String(),
		"attachment_id": attachmentID.String(),
		"file_name":     att.FileName,
	})
	return s.repo.GetAttachmentByID(ctx, attachmentID)
}

// loadOrder fetches the order and checks the actor is a party to it.
func (s *Service) loadOrder(ctx context.Context, orderID, actorID uuid.UUID, actorRole string) (*orders.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	if users.IsStaff(actorRole) {
		return order, nil
	}
	if order.ClientID == actorID {
		return order, nil
	}
	if order.AssignedFreelancerID != nil && *order.AssignedFreelancerID == actorID {
		return order, nil
	}
	return nil, apperr.Forbidden("no access to order %s", orderID)
}

func isValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
