package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination parameters. Limit 0 selects every row.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	return parse(c, DefaultLimit)
}

// ParseOptional is Parse for lists that return every row unless the caller
// asks for a limit
func ParseOptional(c *gin.Context) Params {
	if c.Query("limit") == "" {
		return Params{Page: DefaultPage}
	}
	return parse(c, DefaultLimit)
}

func parse(c *gin.Context, def int) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
