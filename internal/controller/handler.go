package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parentmeet/parentmeet/internal/service"
)

// Handler объединяет HTTP-обработчики поверх сервисного слоя
type Handler struct {
	users         *service.UserService
	slots         *service.SlotService
	generator     *service.SlotGeneratorService
	appointments  *service.AppointmentService
	calendar      *service.CalendarService
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewHandler(
	users *service.UserService,
	slots *service.SlotService,
	generator *service.SlotGeneratorService,
	appointments *service.AppointmentService,
	calendar *service.CalendarService,
	notifications *service.NotificationService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:         users,
		slots:         slots,
		generator:     generator,
		appointments:  appointments,
		calendar:      calendar,
		notifications: notifications,
		logger:        logger,
	}
}

// respondError переводит доменные ошибки в HTTP-коды
func (h *Handler) respondError(c *gin.Context, err error) {
	var conflict *service.SlotConflictError
	var transition *service.StatusTransitionError

	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":               err.Error(),
			"conflicting_slot_id": conflict.SlotID,
		})
	case errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"from":  transition.From,
			"to":    transition.To,
		})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidPattern),
		errors.Is(err, service.ErrInvalidStatusTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSlotConflict),
		errors.Is(err, service.ErrSlotUnavailable),
		errors.Is(err, service.ErrSlotInUse),
		errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// idParam разбирает числовой path-параметр
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// pagination читает skip/limit из query с разумными границами
func pagination(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return skip, limit
}

// Health отвечает на проверку живости
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
