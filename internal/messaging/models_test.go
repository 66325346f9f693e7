package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSONUsesSnakeCase(t *testing.T) {
	now := time.Now()
	msg := Message{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		SenderID:      uuid.New(),
		SenderRole:    "client",
		MessageType:   MessageTypeText,
		Body:          "hello",
		AdminApproved: true,
		DeliveredAt:   &now,
		CreatedAt:     now,
	}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"order_id", "sender_id", "sender_role", "message_type",
		"admin_approved", "delivered_at", "created_at",
	} {
		assert.Contains(t, fields, key)
	}
}

func TestAttachmentJSONUsesSnakeCase(t *testing.T) {
	att := Attachment{
		ID:           uuid.New(),
		OrderID:      uuid.New(),
		UploadedBy:   uuid.New(),
		UploaderRole: "freelancer",
		UploadType:   UploadTypeDraft,
		FileName:     "draft.docx",
		FileURL:      "https://bucket.example.com/draft.docx",
		FileSize:     2048,
		FileType:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}

	raw, err := json.Marshal(att)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"order_id", "uploaded_by", "uploader_role", "upload_type",
		"file_name", "file_url", "file_size", "file_type", "admin_approved",
	} {
		assert.Contains(t, fields, key)
	}
}

func TestValidUploadType(t *testing.T) {
	for _, valid := range []string{UploadTypeInitial, UploadTypeDraft, UploadTypeFinal, UploadTypeRevision} {
		assert.True(t, ValidUploadType(valid), valid)
	}
	assert.False(t, ValidUploadType("screenshot"))
}
