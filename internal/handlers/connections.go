package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/realtime"
)

type ConnectionHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewConnectionHandler(db *gorm.DB, hub *realtime.Hub) *ConnectionHandler {
	return &ConnectionHandler{DB: db, Hub: hub}
}

func connectionPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Employer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "phone_number", "location_county", "location_sub_county", "location_village")
		}).
		Preload("Tasker", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "phone_number", "average_rating", "location_county", "location_sub_county", "location_village")
		}).
		Preload("Task")
}

// List returns all connections. Admin only.
func (h *ConnectionHandler) List(c *fiber.Ctx) error {
	var connections []models.Connection
	if err := connectionPreloads(h.DB).Order("created_at DESC").Find(&connections).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(connections),
		"data":    connections,
	})
}

func (h *ConnectionHandler) Get(c *fiber.Ctx) error {
	conn, err := h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}

	if !conn.Involves(middleware.CallerID(c)) && !middleware.CallerRole(c).IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to view this connection")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conn,
	})
}

// MyConnections returns the caller's side of the handshake history.
func (h *ConnectionHandler) MyConnections(c *fiber.Ctx) error {
	role := middleware.CallerRole(c)
	callerID := middleware.CallerID(c)

	q := h.DB.Model(&models.Connection{})
	switch {
	case role.CanPerformTasks():
		q = q.Where("tasker_id = ?", callerID)
	case role.CanPostTasks():
		q = q.Where("employer_id = ?", callerID)
	default:
		return fiber.NewError(fiber.StatusForbidden,
			"User role "+string(role)+" cannot have connections")
	}

	var connections []models.Connection
	if err := connectionPreloads(q).Order("created_at DESC").Find(&connections).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(connections),
		"data":    connections,
	})
}

type ConnectionReq struct {
	TaskerID uuid.UUID `json:"taskerId"`
	TaskID   uuid.UUID `json:"taskId"`
}

// Create starts the handshake. An employer targets a tasker for their own
// task; a tasker applies for themselves and the employer is copied from the
// task.
func (h *ConnectionHandler) Create(c *fiber.Ctx) error {
	var req ConnectionReq
	if err := c.BodyParser(&req); err != nil || req.TaskID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", req.TaskID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Task not found")
	}

	callerID := middleware.CallerID(c)
	role := middleware.CallerRole(c)

	var conn models.Connection
	switch {
	case role == models.RoleEmployer:
		if task.EmployerID != callerID {
			return fiber.NewError(fiber.StatusForbidden, "Not authorized to create a connection for this task")
		}
		var tasker models.User
		if err := h.DB.First(&tasker, "id = ?", req.TaskerID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tasker not found")
		}
		if !tasker.Role.CanPerformTasks() {
			return fiber.NewError(fiber.StatusBadRequest, "User is not a tasker")
		}
		conn = models.Connection{
			EmployerID:  callerID,
			TaskerID:    tasker.ID,
			TaskID:      task.ID,
			InitiatedBy: models.InitiatedByEmployer,
		}

	case role == models.RoleTasker:
		if req.TaskerID != uuid.Nil && req.TaskerID != callerID {
			return fiber.NewError(fiber.StatusForbidden, "Taskers can only create connections for themselves")
		}
		conn = models.Connection{
			EmployerID:  task.EmployerID,
			TaskerID:    callerID,
			TaskID:      task.ID,
			InitiatedBy: models.InitiatedByTasker,
		}

	default:
		return fiber.NewError(fiber.StatusForbidden,
			"User role "+string(role)+" cannot create connections")
	}

	if err := h.DB.Create(&conn).Error; err != nil {
		return err
	}

	if h.Hub != nil {
		h.Hub.Notify(conn.Counterparty(), "connection.requested", conn)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    conn,
	})
}

// Accept is performed by the counterparty of whoever initiated. Accepting
// also assigns the task to the tasker; both writes share one DB transaction.
func (h *ConnectionHandler) Accept(c *fiber.Ctx) error {
	conn, err := h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}
	if conn.Status != models.ConnectionStatusPending {
		return fiber.NewError(fiber.StatusBadRequest,
			"Connection cannot be accepted. Current status: "+string(conn.Status))
	}
	if conn.Counterparty() != middleware.CallerID(c) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to accept this connection")
	}

	now := time.Now()
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Connection{}).
			Where("id = ?", conn.ID).
			Updates(map[string]interface{}{
				"status":     models.ConnectionStatusAccepted,
				"start_date": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Task{}).
			Where("id = ?", conn.TaskID).
			Updates(map[string]interface{}{
				"status":     models.TaskStatusAssigned,
				"tasker_id":  conn.TaskerID,
				"start_date": now,
			}).Error
	})
	if err != nil {
		return err
	}

	conn, err = h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}

	if h.Hub != nil {
		h.Hub.Notify(h.initiatorID(conn), realtime.EventConnectionAccepted, conn)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conn,
	})
}

// Reject may be performed by either participant while pending.
func (h *ConnectionHandler) Reject(c *fiber.Ctx) error {
	conn, err := h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}
	if conn.Status != models.ConnectionStatusPending {
		return fiber.NewError(fiber.StatusBadRequest,
			"Connection cannot be rejected. Current status: "+string(conn.Status))
	}
	if !conn.Involves(middleware.CallerID(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to reject this connection")
	}

	conn.Status = models.ConnectionStatusRejected
	if err := h.DB.Model(conn).Update("status", conn.Status).Error; err != nil {
		return err
	}

	if h.Hub != nil {
		h.Hub.Notify(h.initiatorID(conn), realtime.EventConnectionRejected, conn)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conn,
	})
}

// Complete closes an accepted connection. Task completion stays
// authoritative: the task is only touched when it has not already been
// marked completed through its own lifecycle.
func (h *ConnectionHandler) Complete(c *fiber.Ctx) error {
	conn, err := h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}
	if conn.Status != models.ConnectionStatusAccepted {
		return fiber.NewError(fiber.StatusBadRequest,
			"Connection cannot be completed. Current status: "+string(conn.Status))
	}
	if conn.EmployerID != middleware.CallerID(c) && !middleware.CallerRole(c).IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to complete this connection")
	}

	now := time.Now()
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Connection{}).
			Where("id = ?", conn.ID).
			Updates(map[string]interface{}{
				"status":   models.ConnectionStatusCompleted,
				"end_date": now,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Task{}).
			Where("id = ? AND status <> ?", conn.TaskID, models.TaskStatusCompleted).
			Updates(map[string]interface{}{
				"status":          models.TaskStatusCompleted,
				"completion_date": now,
			}).Error
	})
	if err != nil {
		return err
	}

	conn, err = h.findConnection(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    conn,
	})
}

func (h *ConnectionHandler) initiatorID(conn *models.Connection) uuid.UUID {
	if conn.InitiatedBy == models.InitiatedByEmployer {
		return conn.EmployerID
	}
	return conn.TaskerID
}

func (h *ConnectionHandler) findConnection(id string) (*models.Connection, error) {
	connID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid connection ID")
	}
	var conn models.Connection
	if err := connectionPreloads(h.DB).First(&conn, "id = ?", connID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Connection not found")
	}
	return &conn, nil
}
