package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parentmeet/parentmeet/internal/model"
)

// calendarParams читает teacher_id и дату из query. Дата по умолчанию — сегодня.
func calendarParams(c *gin.Context) (teacherID int64, date model.Date, ok bool) {
	id, err := strconv.ParseInt(c.Query("teacher_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "teacher_id is required"})
		return 0, model.Date{}, false
	}

	date = model.DateOf(time.Now())
	if v := c.Query("date"); v != "" {
		if err := date.UnmarshalJSON([]byte(`"` + v + `"`)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return 0, model.Date{}, false
		}
	}

	return id, date, true
}

// CalendarWeek — расписание учителя на неделю
func (h *Handler) CalendarWeek(c *gin.Context) {
	teacherID, date, ok := calendarParams(c)
	if !ok {
		return
	}

	schedule, err := h.calendar.WeekSchedule(c.Request.Context(), teacherID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// CalendarMonth — помесячная сводка расписания учителя
func (h *Handler) CalendarMonth(c *gin.Context) {
	teacherID, err := strconv.ParseInt(c.Query("teacher_id"), 10, 64)
	if err != nil || teacherID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "teacher_id is required"})
		return
	}

	now := time.Now()
	year := parseIntQuery(c, "year", now.Year())
	month := parseIntQuery(c, "month", int(now.Month()))
	if month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be 1..12"})
		return
	}

	view, err := h.calendar.Month(c.Request.Context(), teacherID, year, month)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// CalendarWeekImage — расписание недели как PNG
func (h *Handler) CalendarWeekImage(c *gin.Context) {
	teacherID, date, ok := calendarParams(c)
	if !ok {
		return
	}

	png, err := h.calendar.WeekImage(c.Request.Context(), teacherID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
