package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
)

// UploadHandler stores profile and task images under the public uploads
// directory served by app.Static.
type UploadHandler struct {
	DB        *gorm.DB
	UploadDir string
	MaxSize   int64
}

func NewUploadHandler(db *gorm.DB, uploadDir string, maxSize int64) *UploadHandler {
	return &UploadHandler{DB: db, UploadDir: uploadDir, MaxSize: maxSize}
}

// Profile replaces the caller's profile picture.
func (h *UploadHandler) Profile(c *fiber.Ctx) error {
	callerID := middleware.CallerID(c)

	publicPath, err := h.saveImage(c, fmt.Sprintf("photo_%s", callerID))
	if err != nil {
		return err
	}

	if err := h.DB.Model(&models.User{}).
		Where("id = ?", callerID).
		Update("profile_picture", publicPath).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    publicPath,
	})
}

// Task appends an image to a task. Owner or admin only.
func (h *UploadHandler) Task(c *fiber.Ctx) error {
	var task models.Task
	if err := h.DB.First(&task, "id = ?", c.Params("id")).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Task not found")
	}
	if !task.OwnedBy(middleware.CallerID(c), middleware.CallerRole(c)) {
		return fiber.NewError(fiber.StatusForbidden, "Not authorized to update this task")
	}

	publicPath, err := h.saveImage(c, fmt.Sprintf("task_%s_%d", task.ID, time.Now().UnixNano()))
	if err != nil {
		return err
	}

	var images []string
	if len(task.Images) > 0 {
		if err := json.Unmarshal(task.Images, &images); err != nil {
			return err
		}
	}
	images = append(images, publicPath)
	raw, err := json.Marshal(images)
	if err != nil {
		return err
	}
	if err := h.DB.Model(&task).Update("images", datatypes.JSON(raw)).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    publicPath,
	})
}

func (h *UploadHandler) saveImage(c *fiber.Ctx, baseName string) (string, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Please upload a file")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" && ext != ".webp" {
		return "", fiber.NewError(fiber.StatusBadRequest, "Please upload an image file")
	}
	if file.Size <= 0 || file.Size > h.MaxSize {
		return "", fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("Please upload an image less than %d bytes", h.MaxSize))
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return "", err
	}

	filename := baseName + ext
	if err := c.SaveFile(file, filepath.Join(h.UploadDir, filename)); err != nil {
		return "", err
	}

	return "/uploads/" + filename, nil
}
