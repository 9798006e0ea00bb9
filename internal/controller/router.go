package controller

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authpkg "github.com/parentmeet/parentmeet/internal/auth"
	"github.com/parentmeet/parentmeet/internal/model"
)

// NewRouter собирает gin-роутер со всеми маршрутами под /api/v1
func NewRouter(h *Handler, authManager *authpkg.Manager, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/api/v1")

	v1.GET("/health", h.Health)

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	authed := v1.Group("")
	authed.Use(Auth(authManager))

	adminOnly := RequireRoles(model.RoleAdmin)
	teacherOrAdmin := RequireRoles(model.RoleTeacher, model.RoleAdmin)
	parentOnly := RequireRoles(model.RoleParent)

	users := authed.Group("/users")
	{
		users.GET("", adminOnly, h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)
	}

	teachers := authed.Group("/teachers")
	{
		teachers.GET("", h.ListTeachers)
		teachers.GET("/:id", h.GetTeacher)
		teachers.PUT("/:id", teacherOrAdmin, h.UpdateTeacher)
		teachers.DELETE("/:id", adminOnly, h.DeleteTeacher)
	}

	parents := authed.Group("/parents")
	{
		parents.GET("", RequireRoles(model.RoleTeacher, model.RoleAdmin), h.ListParents)
		parents.GET("/:id", h.GetParent)
		parents.PUT("/:id", RequireRoles(model.RoleParent, model.RoleAdmin), h.UpdateParent)
		parents.DELETE("/:id", adminOnly, h.DeleteParent)
	}

	slots := authed.Group("/slots")
	{
		slots.GET("", h.ListSlots)
		slots.GET("/:id", h.GetSlot)
		slots.POST("", teacherOrAdmin, h.CreateSlot)
		slots.PUT("/:id", teacherOrAdmin, h.UpdateSlot)
		slots.DELETE("/:id", teacherOrAdmin, h.DeleteSlot)
		slots.POST("/bulk", teacherOrAdmin, h.BulkCreateSlots)
		slots.POST("/smart/preview", teacherOrAdmin, h.SmartPreview)
		slots.POST("/smart/create", teacherOrAdmin, h.SmartCreate)
		slots.POST("/bulk-advanced", teacherOrAdmin, h.BulkAdvanced)
	}

	appointments := authed.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/summary", h.AppointmentSummary)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/book", parentOnly, h.BookAppointment)
		appointments.PUT("/:id/status", teacherOrAdmin, h.UpdateAppointmentStatus)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.GET("/parent/:parentID", teacherOrAdmin, h.ListParentAppointments)
		appointments.GET("/teacher/:teacherID", h.ListTeacherAppointments)
	}

	calendar := authed.Group("/calendar")
	{
		calendar.GET("/week", h.CalendarWeek)
		calendar.GET("/month", h.CalendarMonth)
		calendar.GET("/week/image", h.CalendarWeekImage)
	}

	notifications := authed.Group("/notifications")
	notifications.Use(adminOnly)
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/:id", h.GetNotification)
		notifications.POST("/:id/resend", h.ResendNotification)
	}

	return router
}
