package server

import (
	"math"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/payrail/pkg/db/pagination"
)

// toMinorUnits converts a major-unit amount (rupees) into minor units (paise).
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func bindOffset(c *gin.Context) (pagination.Offset, error) {
	var page pagination.Offset
	if err := c.ShouldBindQuery(&page); err != nil {
		return pagination.Offset{}, invalidRequestError()
	}
	if page.Skip < 0 {
		return pagination.Offset{}, newValidationError("skip", "invalid_skip", "skip must not be negative")
	}
	if page.Limit < 1 || page.Limit > pagination.MaxLimit {
		return pagination.Offset{}, newValidationError("limit", "invalid_limit", "limit must be between 1 and 1000")
	}
	return page, nil
}

func bindCount(c *gin.Context) (pagination.Count, error) {
	var page pagination.Count
	if err := c.ShouldBindQuery(&page); err != nil {
		return pagination.Count{}, invalidRequestError()
	}
	if page.Skip < 0 {
		return pagination.Count{}, newValidationError("skip", "invalid_skip", "skip must not be negative")
	}
	if page.Count < 1 || page.Count > 100 {
		return pagination.Count{}, newValidationError("count", "invalid_count", "count must be between 1 and 100")
	}
	return page, nil
}
