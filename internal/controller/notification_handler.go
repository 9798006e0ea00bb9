package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListNotifications — журнал уведомлений (admin)
func (h *Handler) ListNotifications(c *gin.Context) {
	skip, limit := pagination(c)

	items, err := h.notifications.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetNotification — уведомление по ID (admin)
func (h *Handler) GetNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	n, err := h.notifications.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

// ResendNotification возвращает уведомление в очередь на отправку (admin)
func (h *Handler) ResendNotification(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.notifications.Resend(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
