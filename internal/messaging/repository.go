package messaging

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, orderID uuid.UUID) ([]Message, error)

	// DeliverMessage approves a pending message; returns false when the
	// message was already approved.
	DeliverMessage(ctx context.Context, id uuid.UUID) (bool, error)

	CreateAttachment(ctx context.Context, att *Attachment) error
	GetAttachmentByID(ctx context.Context, id uuid.UUID) (*Attachment, error)
	ListAttachments(ctx context.Context, orderID uuid.UUID) ([]Attachment, error)
	DeliverAttachment(ctx context.Context, id uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO order_messages (id, order_id, sender_id, sender_role, recipient_id, message_type, body, admin_approved, delivered_at)
		VALUES (:id, :order_id, :sender_id, :sender_role, :recipient_id, :message_type, :body, :admin_approved, :delivered_at)`
	_, err := r.db.NamedExecContext(ctx, query, msg)
	return err
}

func (r *postgresRepository) GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	var msg Message
	err := r.db.GetContext(ctx, &msg, "SELECT * FROM order_messages WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &msg, err
}

func (r *postgresRepository) ListMessages(ctx context.Context, orderID uuid.UUID) ([]Message, error) {
	messages := []Message{}
	err := r.db.SelectContext(ctx, &messages,
		"SELECT * FROM order_messages WHERE order_id = $1 ORDER BY created_at ASC", orderID)
	return messages, err
}

func (r *postgresRepository) DeliverMessage(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE order_messages SET admin_approved = TRUE, delivered_at = now()
		WHERE id = $1 AND admin_approved = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *postgresRepository) CreateAttachment(ctx context.Context, att *Attachment) error {
	query := `
		INSERT INTO order_attachments (id, order_id, uploaded_by, uploader_role, upload_type, file_name, file_url, file_size, file_type, admin_approved, delivered_at)
		VALUES (:id, :order_id, :uploaded_by, :uploader_role, :upload_type, :file_name, :file_url, :file_size, :file_type, :admin_approved, :delivered_at)`
	_, err := r.db.NamedExecContext(ctx, query, att)
	return err
}

func (r *postgresRepository) GetAttachmentByID(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	var att Attachment
	err := r.db.GetContext(ctx, &att, "SELECT * FROM order_attachments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &att, err
}

func (r *postgresRepository) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]Attachment, error) {
	attachments := []Attachment{}
	err := r.db.SelectContext(ctx, &attachments,
		"SELECT * FROM order_attachments WHERE order_id = $1 ORDER BY created_at DESC", orderID)
	return attachments, err
}

func (r *postgresRepository) DeliverAttachment(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE order_attachments SET admin_approved = TRUE, delivered_at = now()
		WHERE id = $1 AND admin_approved = FALSE`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
