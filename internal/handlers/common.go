package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrorHandler is the single formatter every failed request goes through.
// It keeps the error envelope uniform: {"success": false, "error": msg}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		code = fiber.StatusNotFound
		msg = "Resource not found"
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

type PageInfo struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageInfo `json:"next,omitempty"`
	Prev *PageInfo `json:"prev,omitempty"`
}

// pageParams reads page/limit query parameters with the given default limit.
func pageParams(c *fiber.Ctx, defaultLimit int) (page, limit, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	return page, limit, (page - 1) * limit
}

// buildPagination returns next/prev descriptors when more data exists on
// either side of the current page.
func buildPagination(page, limit int, total int64) Pagination {
	p := Pagination{}
	if int64(page*limit) < total {
		p.Next = &PageInfo{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &PageInfo{Page: page - 1, Limit: limit}
	}
	return p
}
