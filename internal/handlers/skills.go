package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/models"
)

type SkillHandler struct {
	DB *gorm.DB
}

func NewSkillHandler(db *gorm.DB) *SkillHandler {
	return &SkillHandler{DB: db}
}

func (h *SkillHandler) List(c *fiber.Ctx) error {
	var skills []models.Skill
	if err := h.DB.Order("category, name").Find(&skills).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(skills),
		"data":    skills,
	})
}

func (h *SkillHandler) ByCategory(c *fiber.Ctx) error {
	var skills []models.Skill
	if err := h.DB.Where("category = ?", c.Params("category")).
		Order("name").Find(&skills).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(skills),
		"data":    skills,
	})
}

type SkillReq struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (h *SkillHandler) Create(c *fiber.Ctx) error {
	var req SkillReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Category) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a skill name and category")
	}

	skill := models.Skill{
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
	}
	if err := h.DB.Create(&skill).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Skill already exists")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    skill,
	})
}

func (h *SkillHandler) Update(c *fiber.Ctx) error {
	skill, err := h.findSkill(c.Params("id"))
	if err != nil {
		return err
	}

	var req SkillReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Name != "" {
		skill.Name = req.Name
	}
	if req.Category != "" {
		skill.Category = req.Category
	}
	if req.Description != "" {
		skill.Description = req.Description
	}

	if err := h.DB.Save(skill).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not update skill")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    skill,
	})
}

func (h *SkillHandler) Delete(c *fiber.Ctx) error {
	skill, err := h.findSkill(c.Params("id"))
	if err != nil {
		return err
	}

	if err := h.DB.Delete(skill).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{},
	})
}

func (h *SkillHandler) findSkill(id string) (*models.Skill, error) {
	skillID, err := uuid.Parse(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid skill ID")
	}
	var skill models.Skill
	if err := h.DB.First(&skill, "id = ?", skillID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Skill not found")
	}
	return &skill, nil
}
