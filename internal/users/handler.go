package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"writehub/order-portal/order-portal-backend/internal/apperr"
	"writehub/order-portal/order-portal-backend/internal/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/users/me")
	{
		me.GET("", h.Me)
		me.GET("/balance", h.Balance)
	}
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), auth.ActorID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if user == nil {
		apperr.Respond(c, apperr.NotFound("user not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Balance(c *gin.Context) {
	balance, err := h.repo.GetBalance(c.Request.Context(), auth.ActorID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}
