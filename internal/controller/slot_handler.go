package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
	"github.com/parentmeet/parentmeet/internal/service"
)

// resolveTeacherID определяет, от имени какого учителя идёт операция.
// Учитель работает только со своим расписанием, админ указывает любого.
func (h *Handler) resolveTeacherID(c *gin.Context, requested int64) (int64, bool) {
	claims := ClaimsFrom(c)

	if claims.Role == model.RoleAdmin {
		if requested == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "teacher_id is required"})
			return 0, false
		}
		return requested, true
	}

	own, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return 0, false
	}
	if requested != 0 && requested != own.ID {
		h.respondError(c, service.ErrForbidden)
		return 0, false
	}

	return own.ID, true
}

// teacherOwnsSlot проверяет, что слот принадлежит текущему учителю
func (h *Handler) teacherOwnsSlot(c *gin.Context, slot *model.AvailableSlot) bool {
	claims := ClaimsFrom(c)
	if claims.Role == model.RoleAdmin {
		return true
	}

	own, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return false
	}
	if own.ID != slot.TeacherID {
		h.respondError(c, service.ErrForbidden)
		return false
	}

	return true
}

type slotCreateRequest struct {
	TeacherID     int64         `json:"teacher_id"`
	DayOfWeek     int           `json:"day_of_week"`
	StartTime     model.DayTime `json:"start_time"`
	EndTime       model.DayTime `json:"end_time"`
	WeekStartDate model.Date    `json:"week_start_date"`
}

// CreateSlot создаёт один слот
func (h *Handler) CreateSlot(c *gin.Context) {
	var req slotCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := h.resolveTeacherID(c, req.TeacherID)
	if !ok {
		return
	}

	slot := &model.AvailableSlot{
		TeacherID:     teacherID,
		DayOfWeek:     req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		WeekStartDate: req.WeekStartDate,
	}

	if err := h.slots.Create(c.Request.Context(), slot); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, slot)
}

// ListSlots — слоты по фильтру из query-параметров
func (h *Handler) ListSlots(c *gin.Context) {
	skip, limit := pagination(c)

	filter := repository.SlotFilter{Skip: skip, Limit: limit}

	if v := c.Query("teacher_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher_id"})
			return
		}
		filter.TeacherID = id
	}
	if v := c.Query("week_start_date"); v != "" {
		var d model.Date
		if err := d.UnmarshalJSON([]byte(`"` + v + `"`)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid week_start_date"})
			return
		}
		filter.WeekStartDate = &d
	}
	filter.AvailableOnly = c.Query("available_only") == "true"

	slots, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, slots)
}

// GetSlot — слот по ID
func (h *Handler) GetSlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, slot)
}

// UpdateSlot меняет время свободного слота
func (h *Handler) UpdateSlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.teacherOwnsSlot(c, slot) {
		return
	}

	var in service.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.slots.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteSlot удаляет свободный слот
func (h *Handler) DeleteSlot(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.teacherOwnsSlot(c, slot) {
		return
	}

	if err := h.slots.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type bulkCreateRequest struct {
	TeacherID     int64               `json:"teacher_id"`
	WeekStartDate model.Date          `json:"week_start_date"`
	Slots         []service.BulkEntry `json:"slots"`
}

// BulkCreateSlots создаёт пачку слотов; падает на первом конфликте
func (h *Handler) BulkCreateSlots(c *gin.Context) {
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := h.resolveTeacherID(c, req.TeacherID)
	if !ok {
		return
	}

	slots, err := h.slots.BulkCreate(c.Request.Context(), teacherID, req.WeekStartDate, req.Slots)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created_slots": slots, "total_created": len(slots)})
}

// SmartPreview показывает, что создаст генератор, ничего не сохраняя
func (h *Handler) SmartPreview(c *gin.Context) {
	var cfg service.SmartSlotConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := h.resolveTeacherID(c, cfg.TeacherID)
	if !ok {
		return
	}
	cfg.TeacherID = teacherID

	preview, err := h.generator.Preview(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// SmartCreate разворачивает недельный шаблон в слоты
func (h *Handler) SmartCreate(c *gin.Context) {
	var cfg service.SmartSlotConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := h.resolveTeacherID(c, cfg.TeacherID)
	if !ok {
		return
	}
	cfg.TeacherID = teacherID

	result, err := h.generator.Create(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// BulkAdvanced генерирует слоты по диапазону дат с исключениями
func (h *Handler) BulkAdvanced(c *gin.Context) {
	var cfg service.AdvancedBulkConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacherID, ok := h.resolveTeacherID(c, cfg.TeacherID)
	if !ok {
		return
	}
	cfg.TeacherID = teacherID

	result, err := h.generator.GenerateAdvanced(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
