package messaging

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/auth"
)

const maxAttachmentSize = 50 << 20 // 50 MiB

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders/:id")
	{
		orders.POST("/messages", h.PostMessage)
		orders.GET("/messages", h.ListMessages)
		orders.POST("/messages/:msgId/deliver", h.DeliverMessage)
		orders.POST("/attachments", h.UploadAttachment)
		orders.POST("/attachments/meta", h.RegisterAttachment)
		orders.GET("/attachments", h.ListAttachments)
		orders.POST("/attachments/:attId/deliver", h.DeliverAttachment)
	}
}

func (h *Handler) PostMessage(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid message payload: %v", err))
		return
	}

	msg, err := h.service.PostMessage(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) ListMessages(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "count": len(messages)})
}

func (h *Handler) DeliverMessage(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}
	messageID, err := uuid.Parse(c.Param("msgId"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid message id"))
		return
	}

	msg, err := h.service.DeliverMessage(c.Request.Context(), orderID, messageID, auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *Handler) UploadAttachment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperr.Respond(c, apperr.Validation("multipart field 'file' is required"))
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		apperr.Respond(c, apperr.Validation("file exceeds the %d byte limit", maxAttachmentSize))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperr.Respond(c, apperr.Validation("unreadable upload: %v", err))
		return
	}
	defer file.Close()

	meta := AttachmentMeta{
		FileName:   fileHeader.Filename,
		FileSize:   fileHeader.Size,
		FileType:   fileHeader.Header.Get("Content-Type"),
		UploadType: c.PostForm("upload_type"),
	}

	att, err := h.service.UploadAttachment(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c), meta, file)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *Handler) RegisterAttachment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	var meta AttachmentMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		apperr.Respond(c, apperr.Validation("invalid attachment payload: %v", err))
		return
	}

	att, err := h.service.RegisterAttachment(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c), meta)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (h *Handler) ListAttachments(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}

	attachments, err := h.service.ListAttachments(c.Request.Context(), orderID, auth.ActorID(c), auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": attachments, "count": len(attachments)})
}

func (h *Handler) DeliverAttachment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid order id"))
		return
	}
	attachmentID, err := uuid.Parse(c.Param("attId"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid attachment id"))
		return
	}

	att, err := h.service.DeliverAttachment(c.Request.Context(), orderID, attachmentID, auth.ActorRole(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}
