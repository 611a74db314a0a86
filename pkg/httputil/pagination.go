package httputil

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds limit/offset pagination parameters
type Params struct {
	Limit  int
	Offset int
}

// Page is the paginated response envelope
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Limits bounds the page size a client may request
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits are used by ParseParams
var DefaultLimits = Limits{Default: DefaultLimit, Max: MaxLimit}

// Parse reads limit and offset from the query string. Missing, malformed
// or non-positive limits fall back to the default; limits above the maximum
// are capped. Malformed or negative offsets become zero.
func (l Limits) Parse(c *gin.Context) Params {
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max < l.Default {
		l.Max = l.Default
	}
	p := Params{Limit: l.Default}

	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > l.Max {
		p.Limit = l.Max
	}

	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Offset = v
		}
	}
	return p
}

// ParseParams parses with DefaultLimits.
func ParseParams(c *gin.Context) Params {
	return DefaultLimits.Parse(c)
}

// NewPage builds the envelope, deriving next/previous links from the request URL.
func NewPage[T any](c *gin.Context, p Params, count int, results []T) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}

	if p.Offset+p.Limit < count {
		next := pageURL(c, p.Limit, p.Offset+p.Limit)
		page.Next = &next
	}
	if p.Offset > 0 {
		prevOffset := p.Offset - p.Limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := pageURL(c, p.Limit, prevOffset)
		page.Previous = &prev
	}
	return page
}

// RespondWithPage sends a paginated 200 response
func RespondWithPage[T any](c *gin.Context, p Params, count int, results []T) {
	RespondWithSuccess(c, NewPage(c, p, count, results))
}

func pageURL(c *gin.Context, limit, offset int) string {
	u := url.URL{
		Scheme: "http",
		Host:   c.Request.Host,
		Path:   c.Request.URL.Path,
	}
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}

	q := c.Request.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
