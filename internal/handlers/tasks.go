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

type TaskHandler struct {
	DB  *gorm.DB
	Hub *realtime.Hub
}

func NewTaskHandler(db *gorm.DB, hub *realtime.Hub) *TaskHandler {
	return &TaskHandler{DB: db, Hub: hub}
}

func taskPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Employer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "location_county", "location_sub_county", "location_village")
		}).
		Preload("Tasker", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "average_rating", "location_county", "location_sub_county", "location_village")
		}).
		Preload("RequiredSkills")
}

// List returns tasks, optionally filtered by status, newest first.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	page, limit, offset := pageParams(c, 25)

	status := c.Query("status")
	base := func() *gorm.DB {
		q := h.DB.Model(&models.Task{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return err
	}

	var tasks []models.Task
	if err := taskPreloads(base()).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(tasks),
		"total":      total,
		"pagination": buildPagination(page, limit, total),
		"data":       tasks,
	})
}

func (h *TaskHandler) Get(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

type TaskReq struct {
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	RequiredSkills []uuid.UUID  `json:"requiredSkills"`
	Location       models.Place `json:"location"`
	Payment        struct {
		Amount int64 `json:"amount"`
	} `json:"payment"`
}

// Create posts a new task. Employers only.
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	if !middleware.CallerRole(c).CanPostTasks() {
		return fiber.NewError(fiber.StatusForbidden, "Only employers can create tasks")
	}

	var req TaskReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" || req.Description == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please add a task title and description")
	}
	if !req.Location.Complete() {
		return fiber.NewError(fiber.StatusBadRequest, "location county, subCounty and village are required")
	}
	if req.Payment.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Please add a payment amount")
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		EmployerID:  middleware.CallerID(c),
		Location:    req.Location,
		Status:      models.TaskStatusOpen,
		Payment: models.TaskPayment{
			Amount: req.Payment.Amount,
			Status: models.PaymentStatusPending,
		},
	}

	if len(req.RequiredSkills) > 0 {
		var skills []models.Skill
		if err := h.DB.Where("id IN ?", req.RequiredSkills).Find(&skills).Error; err != nil {
			return err
		}
		task.RequiredSkills = skills
	}

	if err := h.DB.Create(&task).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Update edits employer-controlled fields. Owner or admin only.
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this task")
	}

	var req TaskReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Description != "" {
		task.Description = req.Description
	}
	if req.Location.Complete() {
		task.Location = req.Location
	}
	// The amount is only editable while no escrow payment exists.
	if req.Payment.Amount > 0 && task.Payment.Status == models.PaymentStatusPending {
		task.Payment.Amount = req.Payment.Amount
	}

	if err := h.DB.Save(task).Error; err != nil {
		return err
	}
	if len(req.RequiredSkills) > 0 {
		var skills []models.Skill
		if err := h.DB.Where("id IN ?", req.RequiredSkills).Find(&skills).Error; err != nil {
			return err
		}
		if err := h.DB.Model(task).Association("RequiredSkills").Replace(skills); err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to delete this task")
	}

	if err := h.DB.Select("RequiredSkills").Delete(task).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{},
	})
}

type AssignReq struct {
	TaskerID uuid.UUID `json:"taskerId"`
}

// Assign moves an open task to assigned. Owner or admin only; the target
// must be a tasker.
func (h *TaskHandler) Assign(c *fiber.Ctx) error {
	var req AssignReq
	if err := c.BodyParser(&req); err != nil || req.TaskerID == uuid.Nil {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a tasker ID")
	}

	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this task")
	}
	if task.Status != models.TaskStatusOpen {
		return fiber.NewError(fiber.StatusBadRequest,
			"Task cannot be assigned. Current status: "+string(task.Status))
	}

	var tasker models.User
	if err := h.DB.First(&tasker, "id = ?", req.TaskerID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Tasker not found")
	}
	if !tasker.Role.CanPerformTasks() {
		return fiber.NewError(fiber.StatusBadRequest, "User is not a tasker")
	}

	now := time.Now()
	task.TaskerID = &tasker.ID
	task.Status = models.TaskStatusAssigned
	task.StartDate = &now
	if err := h.DB.Save(task).Error; err != nil {
		return err
	}

	if h.Hub != nil {
		h.Hub.Notify(tasker.ID, realtime.EventTaskAssigned, task)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Progress moves an assigned task to in-progress. Assigned tasker or admin.
func (h *TaskHandler) Progress(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.AssignedTo(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this task")
	}
	if task.Status != models.TaskStatusAssigned {
		return fiber.NewError(fiber.StatusBadRequest,
			"Task cannot be started. Current status: "+string(task.Status))
	}

	task.Status = models.TaskStatusInProgress
	if err := h.DB.Save(task).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Complete moves an in-progress task to completed. Assigned tasker or admin.
// This path is the authoritative way a task reaches completed.
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.AssignedTo(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this task")
	}
	if task.Status != models.TaskStatusInProgress {
		return fiber.NewError(fiber.StatusBadRequest,
			"Task cannot be completed. Current status: "+string(task.Status))
	}

	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletionDate = &now
	if err := h.DB.Save(task).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Cancel is the only guarded route into the cancelled state: owner or admin,
// from open or assigned, and never while funds sit in escrow.
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	task, err := h.findTask(c.Params("id"))
	if err != nil {
		return err
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to cancel this task")
	}
	if task.Status != models.TaskStatusOpen && task.Status != models.TaskStatusAssigned {
		return fiber.NewError(fiber.StatusBadRequest,
			"Task cannot be cancelled. Current status: "+string(task.Status))
	}
	if task.Payment.Status == models.PaymentStatusEscrow {
		return fiber.NewError(fiber.StatusBadRequest, "Task cannot be cancelled while payment is in escrow")
	}

	task.Status = models.TaskStatusCancelled
	if err := h.DB.Save(task).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// MyTasks returns the caller's tasks: posted tasks for employers, assigned
// tasks for taskers.
func (h *TaskHandler) MyTasks(c *fiber.Ctx) error {
	role := middleware.CallerRole(c)
	callerID := middleware.CallerID(c)

	q := h.DB.Model(&models.Task{})
	switch {
	case role.CanPerformTasks():
		q = q.Where("tasker_id = ?", callerID)
	case role.CanPostTasks():
		q = q.Where("employer_id = ?", callerID)
	default:
		return fiber.NewError(fiber.StatusForbidden,
			"User role "+string(role)+" cannot have tasks")
	}

	var tasks []models.Task
	if err := taskPreloads(q).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(tasks),
		"data":    tasks,
	})
}

func (h *TaskHandler) findTask(id string) (*models.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid task ID")
	}
	var task models.Task
	if err := taskPreloads(h.DB).First(&task, "id = ?", taskID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	return &task, nil
}
