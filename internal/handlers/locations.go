package handlers

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kazilink/backend/internal/models"
)

const locationCacheTTL = 10 * time.Minute

// LocationHandler serves the read-mostly county directory. Responses are
// cached in Redis; a cache miss or a Redis outage falls through to the DB.
type LocationHandler struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLocationHandler(db *gorm.DB, rdb *redis.Client) *LocationHandler {
	return &LocationHandler{DB: db, Redis: rdb}
}

func (h *LocationHandler) Counties(c *fiber.Ctx) error {
	counties, ok := h.cached(c, "locations:counties")
	if !ok {
		var locations []models.Location
		if err := h.DB.Select("county").Order("county").Find(&locations).Error; err != nil {
			return err
		}
		counties = make([]string, 0, len(locations))
		for _, l := range locations {
			counties = append(counties, l.County)
		}
		h.cache(c, "locations:counties", counties)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(counties),
		"data":    counties,
	})
}

func (h *LocationHandler) SubCounties(c *fiber.Ctx) error {
	county := c.Params("county")
	key := "locations:county:" + county + ":subcounties"

	names, ok := h.cached(c, key)
	if !ok {
		subCounties, err := h.findSubCounties(county)
		if err != nil {
			return err
		}
		names = make([]string, 0, len(subCounties))
		for _, sc := range subCounties {
			names = append(names, sc.Name)
		}
		h.cache(c, key, names)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(names),
		"data":    names,
	})
}

func (h *LocationHandler) Villages(c *fiber.Ctx) error {
	county := c.Params("county")
	subCounty := c.Params("subcounty")
	key := "locations:county:" + county + ":subcounty:" + subCounty + ":villages"

	villages, ok := h.cached(c, key)
	if !ok {
		subCounties, err := h.findSubCounties(county)
		if err != nil {
			return err
		}
		var found *models.SubCounty
		for i := range subCounties {
			if strings.EqualFold(subCounties[i].Name, subCounty) {
				found = &subCounties[i]
				break
			}
		}
		if found == nil {
			return fiber.NewError(fiber.StatusNotFound, "Subcounty not found")
		}
		villages = found.Villages
		h.cache(c, key, villages)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(villages),
		"data":    villages,
	})
}

type LocationReq struct {
	County      string             `json:"county"`
	SubCounties []models.SubCounty `json:"subCounties"`
}

// Create adds a county and its tree. Admin only. Writes invalidate the
// county cache.
func (h *LocationHandler) Create(c *fiber.Ctx) error {
	var req LocationReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.County) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a county name")
	}

	location := models.Location{County: strings.TrimSpace(req.County)}
	if err := location.EncodeSubCounties(req.SubCounties); err != nil {
		return err
	}
	if err := h.DB.Create(&location).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "County already exists")
	}

	if h.Redis != nil {
		h.Redis.Del(c.UserContext(),
			"locations:counties",
			"locations:county:"+location.County+":subcounties")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    location,
	})
}

func (h *LocationHandler) findSubCounties(county string) ([]models.SubCounty, error) {
	var location models.Location
	if err := h.DB.Where("county = ?", county).First(&location).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "County not found")
	}
	subCounties, err := location.DecodeSubCounties()
	if err != nil {
		return nil, err
	}
	return subCounties, nil
}

func (h *LocationHandler) cached(c *fiber.Ctx, key string) ([]string, bool) {
	if h.Redis == nil {
		return nil, false
	}
	raw, err := h.Redis.Get(c.UserContext(), key).Bytes()
	if err != nil {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (h *LocationHandler) cache(c *fiber.Ctx, key string, values []string) {
	if h.Redis == nil {
		return
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	h.Redis.Set(c.UserContext(), key, raw, locationCacheTTL)
}
