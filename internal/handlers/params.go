package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

// pathID reads a positive integer path parameter. On failure it writes a
// 400 response and returns false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, "Invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// pageParams reads the page and page_size query parameters under the given
// prefix ("" for the listing itself, "pages_" for nested listings).
func pageParams(c *gin.Context, prefix string) (pagination.Params, error) {
	return pagination.Parse(c.Query(prefix+"page"), c.Query(prefix+"page_size"))
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &v, nil
}

func queryInt64(c *gin.Context, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		return nil, fmt.Errorf("%s must be a positive integer", key)
	}
	return &v, nil
}
