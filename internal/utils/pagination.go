package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-service-api/internal/constants"
)

// PaginationParams is a clamped page request. Page is 1-based.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

func NewPaginationParams(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return PaginationParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// TotalPages is the number of pages needed for total items.
func (p PaginationParams) TotalPages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// GetPaginationParams reads ?page= and ?limit=. The mobile client sends
// page_size instead of limit; both are accepted, limit wins.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))

	raw := c.Query("limit")
	if raw == "" {
		raw = c.Query("page_size")
	}
	limit, _ := strconv.Atoi(raw)

	return NewPaginationParams(page, limit)
}
