package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/repository"
	"github.com/parentmeet/parentmeet/internal/service"
)

type bookRequest struct {
	SlotID      int64             `json:"slot_id"`
	MeetingMode model.MeetingMode `json:"meeting_mode"`
	Notes       *string           `json:"notes,omitempty"`
}

// BookAppointment бронирует слот от имени текущего родителя
func (h *Handler) BookAppointment(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := ClaimsFrom(c)
	parent, err := h.users.GetParentByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	appt, err := h.appointments.Book(c.Request.Context(), service.BookInput{
		ParentID:    parent.ID,
		SlotID:      req.SlotID,
		MeetingMode: req.MeetingMode,
		Notes:       req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appt)
}

// scopeFilter ограничивает выборку записей ролью вызывающего:
// родители и учителя видят только свои записи
func (h *Handler) scopeFilter(c *gin.Context, filter *repository.AppointmentFilter) bool {
	claims := ClaimsFrom(c)

	switch claims.Role {
	case model.RoleParent:
		parent, err := h.users.GetParentByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			h.respondError(c, err)
			return false
		}
		filter.ParentID = parent.ID
	case model.RoleTeacher:
		teacher, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			h.respondError(c, err)
			return false
		}
		filter.TeacherID = teacher.ID
	}

	return true
}

// ListAppointments — записи по фильтру с учётом роли
func (h *Handler) ListAppointments(c *gin.Context) {
	skip, limit := pagination(c)
	filter := repository.AppointmentFilter{Skip: skip, Limit: limit}

	if v := c.Query("status"); v != "" {
		filter.Status = model.AppointmentStatus(v)
	}
	if v := c.Query("start_date"); v != "" {
		var d model.Date
		if err := d.UnmarshalJSON([]byte(`"` + v + `"`)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		filter.StartDate = &d
	}
	if v := c.Query("end_date"); v != "" {
		var d model.Date
		if err := d.UnmarshalJSON([]byte(`"` + v + `"`)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		filter.EndDate = &d
	}
	if !h.scopeFilter(c, &filter) {
		return
	}

	appts, err := h.appointments.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appts)
}

// AppointmentSummary — количество записей по статусам с учётом роли
func (h *Handler) AppointmentSummary(c *gin.Context) {
	var filter repository.AppointmentFilter
	if !h.scopeFilter(c, &filter) {
		return
	}

	summary, err := h.appointments.Summary(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// canAccessAppointment: запись видят её родитель, её учитель и админ
func (h *Handler) canAccessAppointment(c *gin.Context, appt *model.Appointment) bool {
	claims := ClaimsFrom(c)

	switch claims.Role {
	case model.RoleAdmin:
		return true
	case model.RoleParent:
		parent, err := h.users.GetParentByUserID(c.Request.Context(), claims.UserID)
		if err == nil && parent.ID == appt.ParentID {
			return true
		}
	case model.RoleTeacher:
		teacher, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
		if err == nil && teacher.ID == appt.TeacherID {
			return true
		}
	}

	h.respondError(c, service.ErrForbidden)
	return false
}

// GetAppointment — запись по ID
func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.canAccessAppointment(c, appt) {
		return
	}

	c.JSON(http.StatusOK, appt)
}

// ListParentAppointments — записи конкретного родителя (admin/teacher)
func (h *Handler) ListParentAppointments(c *gin.Context) {
	parentID, ok := idParam(c, "parentID")
	if !ok {
		return
	}

	skip, limit := pagination(c)
	appts, err := h.appointments.List(c.Request.Context(), repository.AppointmentFilter{
		ParentID: parentID,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appts)
}

// ListTeacherAppointments — записи конкретного учителя
func (h *Handler) ListTeacherAppointments(c *gin.Context) {
	teacherID, ok := idParam(c, "teacherID")
	if !ok {
		return
	}

	skip, limit := pagination(c)
	appts, err := h.appointments.List(c.Request.Context(), repository.AppointmentFilter{
		TeacherID: teacherID,
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, appts)
}

type statusRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

// UpdateAppointmentStatus переводит запись в новый статус.
// Доступно учителю записи и админу.
func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	claims := ClaimsFrom(c)
	if claims.Role != model.RoleAdmin {
		teacher, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
		if err != nil || teacher.ID != appt.TeacherID {
			h.respondError(c, service.ErrForbidden)
			return
		}
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.appointments.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// CancelAppointment отменяет запись и освобождает слот.
// Доступно родителю записи, её учителю и админу.
func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	appt, err := h.appointments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.canAccessAppointment(c, appt) {
		return
	}

	cancelled, err := h.appointments.Cancel(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cancelled)
}

// parseIntQuery — вспомогательный разбор числового query-параметра
func parseIntQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
