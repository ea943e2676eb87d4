package ginutil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// QueryInt extracts an integer from query parameters with default value
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// QueryUint64 extracts an unsigned integer from query parameters; 0 when absent
func QueryUint64(c *gin.Context, key string) (uint64, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return 0, nil
	}
	return strconv.ParseUint(valueStr, 10, 64)
}

// QueryTime parses an RFC 3339 timestamp query parameter; nil when absent.
// The result is in UTC.
func QueryTime(c *gin.Context, key string) (*time.Time, error) {
	valueStr := c.Query(key)
	if valueStr == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, valueStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	t = t.UTC()
	return &t, nil
}

// ParamUint64 extracts a positive id from path parameters
func ParamUint64(c *gin.Context, key string) (uint64, error) {
	valueStr := c.Param(key)
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return value, nil
}
