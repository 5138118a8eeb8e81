package bridge

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Pagination defaults for the read actions.
const (
	DefaultPage     = 1
	DefaultPageSize = 25
	MaxPageSize     = 200
)

// Page is a normalized pagination window.
type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageInfo is returned alongside paginated results.
type PageInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	Total    int  `json:"total"`
	HasMore  bool `json:"hasMore"`
}

// Info builds the PageInfo for a result set of the given total size.
func (p Page) Info(total int) PageInfo {
	return PageInfo{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		HasMore:  p.Page*p.PageSize < total,
	}
}

// ParsePage reads page and pageSize from an action's data object.
// Invalid input silently falls back to defaults; pageSize is capped.
func ParsePage(data gjson.Result) Page {
	p := Page{
		Page:     positiveInt(data.Get("page"), DefaultPage),
		PageSize: positiveInt(data.Get("pageSize"), DefaultPageSize),
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func positiveInt(v gjson.Result, fallback int) int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return fallback
		}
		f = parsed
	default:
		return fallback
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	n := math.Floor(f)
	if n < 1 || n > math.MaxInt32 {
		return fallback
	}
	return int(n)
}
