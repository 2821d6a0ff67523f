package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milkrun/internal/clock"
)

func paramSnowflakeID(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return id, nil
}

func snowflakeFromString(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}

func paramDate(c *gin.Context, name string) (clock.Date, error) {
	d, err := clock.ParseDate(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return "", newValidationError(name, "invalid_date", "invalid date, want YYYY-MM-DD")
	}
	return d, nil
}

func paramInt(c *gin.Context, name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return n, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "invalid "+name)
	}
	return n, nil
}
