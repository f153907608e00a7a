package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/models"
)

// SearchHandler builds explicit, enumerated filters — never raw query-map
// pass-through — over tasks and taskers.
type SearchHandler struct {
	DB *gorm.DB
}

func NewSearchHandler(db *gorm.DB) *SearchHandler {
	return &SearchHandler{DB: db}
}

// TaskSearchFilter enumerates every filter /search/tasks understands.
type TaskSearchFilter struct {
	Keyword    string // case-insensitive substring over title/description
	Status     string
	County     string
	SubCounty  string
	Skill      string // uuid or case-insensitive name
	MinPayment int64
	MaxPayment int64
	Sort       string
}

// TaskerSearchFilter enumerates every filter /search/taskers understands.
type TaskerSearchFilter struct {
	Keyword   string // case-insensitive substring over name
	County    string
	SubCounty string
	Skill     string
	MinRating float64
	Sort      string
}

func (h *SearchHandler) Tasks(c *fiber.Ctx) error {
	filter := TaskSearchFilter{
		Keyword:    c.Query("keyword"),
		Status:     c.Query("status"),
		County:     c.Query("county"),
		SubCounty:  c.Query("subCounty"),
		Skill:      c.Query("skill"),
		MinPayment: int64(c.QueryInt("minPayment")),
		MaxPayment: int64(c.QueryInt("maxPayment")),
		Sort:       c.Query("sort", "created_at DESC"),
	}

	skillID, err := h.resolveSkill(filter.Skill)
	if err != nil {
		return err
	}

	base := func() *gorm.DB {
		q := h.DB.Model(&models.Task{})
		if filter.Keyword != "" {
			kw := "%" + strings.ToLower(filter.Keyword) + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", kw, kw)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.County != "" {
			q = q.Where("location_county = ?", filter.County)
		}
		if filter.SubCounty != "" {
			q = q.Where("location_sub_county = ?", filter.SubCounty)
		}
		if skillID != nil {
			q = q.Where("id IN (?)", h.DB.Table("task_skills").
				Select("task_id").Where("skill_id = ?", *skillID))
		}
		if filter.MinPayment > 0 {
			q = q.Where("payment_amount >= ?", filter.MinPayment)
		}
		if filter.MaxPayment > 0 {
			q = q.Where("payment_amount <= ?", filter.MaxPayment)
		}
		return q
	}

	page, limit, offset := pageParams(c, 10)

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return err
	}

	var tasks []models.Task
	if err := taskPreloads(base()).
		Order(sortClause(filter.Sort, "created_at DESC")).
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

func (h *SearchHandler) Taskers(c *fiber.Ctx) error {
	minRating := float64(c.QueryInt("minRating"))
	filter := TaskerSearchFilter{
		Keyword:   c.Query("keyword"),
		County:    c.Query("county"),
		SubCounty: c.Query("subCounty"),
		Skill:     c.Query("skill"),
		MinRating: minRating,
		Sort:      c.Query("sort", "average_rating DESC"),
	}

	skillID, err := h.resolveSkill(filter.Skill)
	if err != nil {
		return err
	}

	base := func() *gorm.DB {
		q := h.DB.Model(&models.User{}).Where("role = ?", models.RoleTasker)
		if filter.Keyword != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Keyword)+"%")
		}
		if filter.County != "" {
			q = q.Where("location_county = ?", filter.County)
		}
		if filter.SubCounty != "" {
			q = q.Where("location_sub_county = ?", filter.SubCounty)
		}
		if skillID != nil {
			q = q.Where("id IN (?)", h.DB.Table("user_skills").
				Select("user_id").Where("skill_id = ?", *skillID))
		}
		if filter.MinRating > 0 {
			q = q.Where("average_rating >= ?", filter.MinRating)
		}
		return q
	}

	page, limit, offset := pageParams(c, 10)

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return err
	}

	var taskers []models.User
	if err := base().Preload("Skills").
		Order(sortClause(filter.Sort, "average_rating DESC")).
		Offset(offset).Limit(limit).
		Find(&taskers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"count":      len(taskers),
		"total":      total,
		"pagination": buildPagination(page, limit, total),
		"data":       taskers,
	})
}

// resolveSkill accepts either a skill id or a case-insensitive name. An
// unknown skill is not an error; the filter is just dropped.
func (h *SearchHandler) resolveSkill(skill string) (*uuid.UUID, error) {
	if skill == "" {
		return nil, nil
	}

	if id, err := uuid.Parse(skill); err == nil {
		return &id, nil
	}

	var s models.Skill
	err := h.DB.Where("LOWER(name) = ?", strings.ToLower(skill)).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s.ID, nil
}

// allowed sort columns, single field and direction only
var sortColumns = map[string]bool{
	"created_at":     true,
	"payment_amount": true,
	"average_rating": true,
	"name":           true,
	"title":          true,
}

// sortClause validates a "column DIR" sort parameter against the allow-list
// so arbitrary SQL can't ride in on the sort query parameter.
func sortClause(sort, fallback string) string {
	parts := strings.Fields(sort)
	if len(parts) == 0 || len(parts) > 2 {
		return fallback
	}
	col := strings.ToLower(parts[0])
	if !sortColumns[col] {
		return fallback
	}
	dir := "ASC"
	if len(parts) == 2 && strings.EqualFold(parts[1], "DESC") {
		dir = "DESC"
	}
	return col + " " + dir
}
