package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

func reviewPreloads(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Reviewer", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Preload("Reviewee", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Preload("Task", func(db *gorm.DB) *gorm.DB { return db.Select("id", "title") })
}

func (h *ReviewHandler) List(c *fiber.Ctx) error {
	var reviews []models.Review
	if err := reviewPreloads(h.DB).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(reviews),
		"data":    reviews,
	})
}

func (h *ReviewHandler) ForUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid user ID")
	}

	var reviews []models.Review
	if err := reviewPreloads(h.DB).
		Where("reviewee_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(reviews),
		"data":    reviews,
	})
}

func (h *ReviewHandler) ForTask(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid task ID")
	}

	var reviews []models.Review
	if err := reviewPreloads(h.DB).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(reviews),
		"data":    reviews,
	})
}

type ReviewReq struct {
	RevieweeID uuid.UUID `json:"revieweeId"`
	TaskID     uuid.UUID `json:"taskId"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
}

// Create writes a review for a completed task. The reviewer must be a party
// to the task, the reviewee must be the counterpart, and each reviewer gets
// one review per task.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var req ReviewReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.RevieweeID == uuid.Nil || req.TaskID == uuid.Nil || req.Rating == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide reviewee, task and rating")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "Rating must be between 1 and 5")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", req.TaskID).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	if task.Status != models.TaskStatusCompleted {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot review a task that is not completed")
	}

	callerID := middleware.CallerID(c)
	isEmployer := task.EmployerID == callerID
	isTasker := task.TaskerID != nil && *task.TaskerID == callerID
	if !isEmployer && !isTasker {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to review this task")
	}
	if req.RevieweeID == callerID {
		return fiber.NewError(fiber.StatusBadRequest, "A user cannot review themselves")
	}
	revieweeIsParty := req.RevieweeID == task.EmployerID ||
		(task.TaskerID != nil && *task.TaskerID == req.RevieweeID)
	if !revieweeIsParty {
		return fiber.NewError(fiber.StatusBadRequest,
			"The reviewee must be either the employer or the tasker of the task")
	}

	var existing models.Review
	if err := h.DB.Where("reviewer_id = ? AND task_id = ?", callerID, req.TaskID).
		First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "You have already reviewed this task")
	}

	review := models.Review{
		ReviewerID: callerID,
		RevieweeID: req.RevieweeID,
		TaskID:     req.TaskID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, req.RevieweeID)
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    review,
	})
}

type ReviewUpdateReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	review, err := h.findReview(c.Params("id"))
	if err != nil {
		return err
	}
	if review.ReviewerID != middleware.CallerID(c) && !middleware.CallerRole(c).IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this review")
	}

	var req ReviewUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Rating != 0 {
		if req.Rating < 1 || req.Rating > 5 {
			return fiber.NewError(fiber.StatusBadRequest, "Rating must be between 1 and 5")
		}
		review.Rating = req.Rating
	}
	if req.Comment != "" {
		review.Comment = req.Comment
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.RevieweeID)
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    review,
	})
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	review, err := h.findReview(c.Params("id"))
	if err != nil {
		return err
	}
	if review.ReviewerID != middleware.CallerID(c) && !middleware.CallerRole(c).IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to delete this review")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(review).Error; err != nil {
			return err
		}
		return recomputeAverageRating(tx, review.RevieweeID)
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{},
	})
}

// recomputeAverageRating refetches all of the reviewee's reviews and stores
// the mean, or zero when none remain. Full recomputation keeps the derived
// field exact after updates and deletes.
func recomputeAverageRating(tx *gorm.DB, revieweeID uuid.UUID) error {
	var reviews []models.Review
	if err := tx.Where("reviewee_id = ?", revieweeID).Find(&reviews).Error; err != nil {
		return err
	}

	var average float64
	if len(reviews) > 0 {
		var total int
		for _, r := range reviews {
			total += r.Rating
		}
		average = float64(total) / float64(len(reviews))
	}

	return tx.Model(&models.User{}).
		Where("id = ?", revieweeID).
		Update("average_rating", average).Error
}

func (h *ReviewHandler) findReview(id string) (*models.Review, error) {
	reviewID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid review ID")
	}
	var review models.Review
	if err := h.DB.First(&review, "id = ?", reviewID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Review not found")
	}
	return &review, nil
}
