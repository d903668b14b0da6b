package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/siteeye/internal/alert"
	"github.com/siteeye/internal/auth"
	"github.com/siteeye/internal/geo"
	"github.com/siteeye/internal/models"
	"github.com/siteeye/internal/report"
	"github.com/siteeye/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	db          *gorm.DB
	engine      *alert.Engine
	alerts      *repository.AlertRepository
	escalations *repository.EscalationRepository
	facts       *repository.FactRepository
	reports     *report.Generator
	loc         *time.Location
	logger      *zap.Logger
	router      *gin.Engine
}

func NewServer(
	db *gorm.DB,
	engine *alert.Engine,
	alerts *repository.AlertRepository,
	escalations *repository.EscalationRepository,
	facts *repository.FactRepository,
	reports *report.Generator,
	loc *time.Location,
	logger *zap.Logger,
) *Server {
	server := &Server{
		db:          db,
		engine:      engine,
		alerts:      alerts,
		escalations: escalations,
		facts:       facts,
		reports:     reports,
		loc:         loc,
		logger:      logger,
		router:      gin.Default(),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.POST("/api/v1/auth/login", s.login)
	s.router.POST("/api/v1/auth/register", s.register)

	api := s.router.Group("/api/v1")
	api.Use(auth.AuthMiddleware())

	api.POST("/attendance/checkin", s.checkIn)
	api.POST("/attendance/checkout", s.checkOut)

	api.GET("/alerts", s.listAlerts)
	api.PUT("/alerts/:id/acknowledge", s.acknowledgeAlert)
	api.GET("/alerts/:id/escalations", s.listAlertEscalations)

	api.GET("/escalations", s.listEscalations)
	api.PUT("/escalations/:id/acknowledge", s.acknowledgeEscalation)
	api.PUT("/escalations/:id/resolve", auth.RequireRole(models.RoleAdmin, models.RoleSupervisor), s.resolveEscalation)

	api.GET("/projects", s.listProjects)
	api.POST("/projects", auth.RequireRole(models.RoleAdmin), s.createProject)
	api.POST("/assignments", auth.RequireRole(models.RoleAdmin, models.RoleSupervisor), s.createAssignment)

	api.GET("/engine/status", s.engineStatus)
	api.GET("/reports/daily", s.dailyReport)
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(&user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role})
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     models.RoleWorker,
		ApiKey:   uuid.NewString(),
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	if err := s.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

type attendanceRequest struct {
	ProjectID uint    `json:"project_id" binding:"required"`
	WorkerID  uint    `json:"worker_id" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) checkIn(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := s.facts.ProjectByID(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	now := time.Now().In(s.loc)
	day := now.Format(models.DayFormat)

	var record models.AttendanceRecord
	err = s.db.Where("project_id = ? AND worker_id = ? AND day = ?", req.ProjectID, req.WorkerID, day).
		First(&record).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record.CheckInAt != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "worker already checked in today"})
		return
	}

	record.ProjectID = req.ProjectID
	record.WorkerID = req.WorkerID
	record.Day = day
	record.CheckInAt = &now
	record.CheckInLat = req.Latitude
	record.CheckInLon = req.Longitude

	if err := s.db.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.recordBreachIfOutside(project, req, models.BreachCheckIn, now)
	c.JSON(http.StatusCreated, record)
}

func (s *Server) checkOut(c *gin.Context) {
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := s.facts.ProjectByID(req.ProjectID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	now := time.Now().In(s.loc)
	day := now.Format(models.DayFormat)

	var record models.AttendanceRecord
	err = s.db.Where("project_id = ? AND worker_id = ? AND day = ? AND check_in_at IS NOT NULL",
		req.ProjectID, req.WorkerID, day).First(&record).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open attendance session"})
		return
	}
	if record.CheckOutAt != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "worker already checked out today"})
		return
	}

	record.CheckOutAt = &now
	record.CheckOutLat = req.Latitude
	record.CheckOutLon = req.Longitude

	if err := s.db.Save(&record).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.recordBreachIfOutside(project, req, models.BreachCheckOut, now)
	c.JSON(http.StatusOK, record)
}

// recordBreachIfOutside stores a geofence event when the reported
// location falls outside the project boundary. The detector turns
// these into alerts on its next tick.
func (s *Server) recordBreachIfOutside(project *models.Project, req attendanceRequest, kind models.BreachKind, at time.Time) {
	point := geo.LatLon{Lat: req.Latitude, Lon: req.Longitude}
	center := geo.LatLon{Lat: project.Latitude, Lon: project.Longitude}
	if geo.IsInside(point, center, project.RadiusMeters) {
		return
	}

	event := &models.GeofenceEvent{
		ProjectID:      project.ID,
		WorkerID:       req.WorkerID,
		Kind:           kind,
		At:             at,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		DistanceMeters: geo.DistanceMeters(point, center),
	}
	if err := s.facts.RecordGeofenceEvent(event); err != nil {
		s.logger.Error("failed to record geofence breach",
			zap.Uint("project_id", project.ID),
			zap.Uint("worker_id", req.WorkerID),
			zap.Error(err),
		)
	}
}

func (s *Server) listAlerts(c *gin.Context) {
	priority := models.AlertPriority(c.Query("priority"))
	unreadOnly := c.Query("unread") == "true"
	limit := 100
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	alerts, err := s.alerts.List(priority, unreadOnly, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	acked, err := s.alerts.Acknowledge(uint(id), c.GetString("username"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, acked)
}

func (s *Server) listAlertEscalations(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	events, err := s.escalations.ListByAlert(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) listEscalations(c *gin.Context) {
	limit := 100
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}

	events, err := s.escalations.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) acknowledgeEscalation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid escalation id"})
		return
	}

	event, err := s.escalations.Acknowledge(uint(id), c.GetString("username"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "escalation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) resolveEscalation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid escalation id"})
		return
	}

	var req struct {
		Resolution models.EscalationResolution `json:"resolution" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := s.escalations.Resolve(uint(id), req.Resolution)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "escalation not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.facts.ActiveProjects()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) createProject(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project.IsActive = true

	if err := s.db.Create(&project).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) createAssignment(c *gin.Context) {
	var assignment models.TaskAssignment
	if err := c.ShouldBindJSON(&assignment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if assignment.Day == "" {
		assignment.Day = time.Now().In(s.loc).Format(models.DayFormat)
	}

	if err := s.db.Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (s *Server) engineStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": s.engine.Running()})
}

func (s *Server) dailyReport(c *gin.Context) {
	day := time.Now().In(s.loc)
	if q := c.Query("day"); q != "" {
		parsed, err := time.ParseInLocation(models.DayFormat, q, s.loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	summary, err := s.reports.DailySummary(day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
