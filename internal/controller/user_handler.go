package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parentmeet/parentmeet/internal/model"
	"github.com/parentmeet/parentmeet/internal/service"
)

// ListUsers — список пользователей (admin)
func (h *Handler) ListUsers(c *gin.Context) {
	skip, limit := pagination(c)

	users, err := h.users.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// GetUser — пользователь по ID. Не-админ видит только себя.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	claims := ClaimsFrom(c)
	if claims.Role != model.RoleAdmin && claims.UserID != id {
		h.respondError(c, service.ErrForbidden)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateUser обновляет пользователя. Не-админ меняет только себя.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	claims := ClaimsFrom(c)
	if claims.Role != model.RoleAdmin && claims.UserID != id {
		h.respondError(c, service.ErrForbidden)
		return
	}

	var in service.UserUpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Деактивация доступна только админу
	if in.IsActive != nil && claims.Role != model.RoleAdmin {
		h.respondError(c, service.ErrForbidden)
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser удаляет пользователя (admin)
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTeachers — список учителей, опционально по предмету
func (h *Handler) ListTeachers(c *gin.Context) {
	skip, limit := pagination(c)

	teachers, err := h.users.ListTeachers(c.Request.Context(), c.Query("subject"), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, teachers)
}

// GetTeacher — профиль учителя
func (h *Handler) GetTeacher(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	teacher, err := h.users.GetTeacher(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, teacher)
}

type teacherUpdateRequest struct {
	Subject string  `json:"subject"`
	Office  *string `json:"office,omitempty"`
}

// UpdateTeacher — правка профиля учителя: сам учитель или админ
func (h *Handler) UpdateTeacher(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	claims := ClaimsFrom(c)
	if claims.Role != model.RoleAdmin {
		own, err := h.users.GetTeacherByUserID(c.Request.Context(), claims.UserID)
		if err != nil || own.ID != id {
			h.respondError(c, service.ErrForbidden)
			return
		}
	}

	var req teacherUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teacher, err := h.users.UpdateTeacher(c.Request.Context(), id, req.Subject, req.Office)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, teacher)
}

// DeleteTeacher удаляет профиль учителя (admin)
func (h *Handler) DeleteTeacher(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteTeacher(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListParents — список родителей (admin и учителя)
func (h *Handler) ListParents(c *gin.Context) {
	skip, limit := pagination(c)

	parents, err := h.users.ListParents(c.Request.Context(), skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, parents)
}

// GetParent — профиль родителя
func (h *Handler) GetParent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	parent, err := h.users.GetParent(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, parent)
}

type parentUpdateRequest struct {
	StudentName  string `json:"student_name"`
	StudentClass string `json:"student_class"`
}

// UpdateParent — правка профиля родителя: сам родитель или админ
func (h *Handler) UpdateParent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	claims := ClaimsFrom(c)
	if claims.Role != model.RoleAdmin {
		own, err := h.users.GetParentByUserID(c.Request.Context(), claims.UserID)
		if err != nil || own.ID != id {
			h.respondError(c, service.ErrForbidden)
			return
		}
	}

	var req parentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parent, err := h.users.UpdateParent(c.Request.Context(), id, req.StudentName, req.StudentClass)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, parent)
}

// DeleteParent удаляет профиль родителя (admin)
func (h *Handler) DeleteParent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteParent(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
