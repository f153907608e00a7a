package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/middleware"
	"github.com/kazilink/backend/internal/models"
	"github.com/kazilink/backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int // minutes
}

type RegisterReq struct {
	Name        string            `json:"name"`
	PhoneNumber string            `json:"phoneNumber"`
	NationalID  string            `json:"nationalId"`
	Password    string            `json:"password"`
	Role        string            `json:"role"`
	Location    models.Place      `json:"location"`
	Education   *models.Education `json:"education,omitempty"`
	Skills      []uuid.UUID       `json:"skills,omitempty"`
}

func (r *RegisterReq) validate() []string {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name is required")
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		missing = append(missing, "phoneNumber is required")
	}
	if strings.TrimSpace(r.NationalID) == "" {
		missing = append(missing, "nationalId is required")
	}
	if len(strings.TrimSpace(r.Password)) < 6 {
		missing = append(missing, "password of at least 6 characters is required")
	}
	if !r.Location.Complete() {
		missing = append(missing, "location county, subCounty and village are required")
	}
	return missing
}

// Register creates an employer or tasker account. Admin accounts are never
// created through the public API.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != models.RoleEmployer && role != models.RoleTasker {
		return fiber.NewError(fiber.StatusBadRequest, "Role must be employer or tasker")
	}
	if missing := req.validate(); len(missing) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, strings.Join(missing, "; "))
	}

	return h.createUser(c, &req, role)
}

// RegisterTasker is the tasker-specific registration that also takes
// education and a skill list.
func (h *AuthHandler) RegisterTasker(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if missing := req.validate(); len(missing) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, strings.Join(missing, "; "))
	}

	return h.createUser(c, &req, models.RoleTasker)
}

func (h *AuthHandler) createUser(c *fiber.Ctx, req *RegisterReq, role models.Role) error {
	phone := strings.TrimSpace(req.PhoneNumber)
	nationalID := strings.TrimSpace(req.NationalID)

	var existing models.User
	err := h.DB.Where("phone_number = ? OR national_id = ?", phone, nationalID).First(&existing).Error
	if err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "Phone number or national ID already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := utils.HashPassword(strings.TrimSpace(req.Password))
	if err != nil {
		return err
	}

	user := models.User{
		Name:        strings.TrimSpace(req.Name),
		PhoneNumber: phone,
		NationalID:  nationalID,
		Password:    hashed,
		Role:        role,
		Location:    req.Location,
		Availability: true,
	}
	if role == models.RoleTasker && req.Education != nil {
		user.Education = *req.Education
	}

	if role == models.RoleTasker && len(req.Skills) > 0 {
		var skills []models.Skill
		if err := h.DB.Where("id IN ?", req.Skills).Find(&skills).Error; err != nil {
			return err
		}
		user.Skills = skills
	}

	if err := h.DB.Create(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not create user")
	}

	return h.sendTokenResponse(c, &user, fiber.StatusCreated)
}

type LoginReq struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.PhoneNumber == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide phone number and password")
	}

	var user models.User
	if err := h.DB.Where("phone_number = ?", strings.TrimSpace(req.PhoneNumber)).First(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	return h.sendTokenResponse(c, &user, fiber.StatusOK)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	var user models.User
	if err := h.DB.Preload("Skills").First(&user, "id = ?", middleware.CallerID(c)).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

type UpdateDetailsReq struct {
	Name        string            `json:"name"`
	PhoneNumber string            `json:"phoneNumber"`
	Location    *models.Place     `json:"location,omitempty"`
	Education   *models.Education `json:"education,omitempty"`
}

func (h *AuthHandler) UpdateDetails(c *fiber.Ctx) error {
	var req UpdateDetailsReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", middleware.CallerID(c)).Error; err != nil {
		return err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(req.PhoneNumber); phone != "" {
		user.PhoneNumber = phone
	}
	if req.Location != nil {
		if !req.Location.Complete() {
			return fiber.NewError(fiber.StatusBadRequest, "location county, subCounty and village are required")
		}
		user.Location = *req.Location
	}
	if user.Role == models.RoleTasker && req.Education != nil {
		user.Education = *req.Education
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not update details")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

type UpdatePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) UpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.NewPassword) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "New password must be at least 6 characters")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", middleware.CallerID(c)).Error; err != nil {
		return err
	}
	if !utils.CheckPassword(user.Password, req.CurrentPassword) {
		return fiber.NewError(fiber.StatusUnauthorized, "Password is incorrect")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.DB.Model(&user).Update("password", hashed).Error; err != nil {
		return err
	}

	return h.sendTokenResponse(c, &user, fiber.StatusOK)
}

// sendTokenResponse signs a JWT, sets the httpOnly cookie and returns the
// token alongside the user.
func (h *AuthHandler) sendTokenResponse(c *fiber.Ctx, user *models.User, status int) error {
	token, err := utils.SignJWT(h.JWTSecret, user.ID.String(), string(user.Role), h.Expires)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   h.Expires * 60,
	})

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"data":    user,
	})
}
