package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestLimitsParse(t *testing.T) {
	limits := Limits{Default: 20, Max: 100}

	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Limit: 20}},
		{"?limit=5", Params{Limit: 5}},
		{"?limit=500", Params{Limit: 100}},
		{"?limit=0", Params{Limit: 20}},
		{"?limit=-3", Params{Limit: 20}},
		{"?limit=abc", Params{Limit: 20}},
		{"?limit=10&offset=30", Params{Limit: 10, Offset: 30}},
		{"?offset=-1", Params{Limit: 20}},
		{"?offset=x", Params{Limit: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, limits.Parse(newContext("/patients"+tt.query)))
		})
	}
}

func TestLimitsParseFixesBadBounds(t *testing.T) {
	p := Limits{}.Parse(newContext("/patients?limit=1000"))
	assert.Equal(t, DefaultLimit, p.Limit)
}

func TestParseParamsUsesDefaults(t *testing.T) {
	assert.Equal(t, Params{Limit: DefaultLimit}, ParseParams(newContext("/patients")))
}

func TestNewPageLinks(t *testing.T) {
	c := newContext("http://api.test/api/v1/patients?search=ann&limit=2&offset=2")
	page := NewPage(c, Params{Limit: 2, Offset: 2}, 5, []int{3, 4})

	assert.Equal(t, 5, page.Count)
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://api.test/api/v1/patients?limit=2&offset=4&search=ann", *page.Next)
	assert.Equal(t, "http://api.test/api/v1/patients?limit=2&search=ann", *page.Previous)
}

func TestNewPageBoundaries(t *testing.T) {
	c := newContext("http://api.test/api/v1/patients")

	first := NewPage(c, Params{Limit: 20}, 3, []int{1, 2, 3})
	assert.Nil(t, first.Next)
	assert.Nil(t, first.Previous)

	empty := NewPage[int](c, Params{Limit: 20}, 0, nil)
	assert.NotNil(t, empty.Results)
	assert.Empty(t, empty.Results)
}

func TestNewPageHonoursForwardedProto(t *testing.T) {
	c := newContext("http://api.test/api/v1/patients")
	c.Request.Header.Set("X-Forwarded-Proto", "https")

	page := NewPage(c, Params{Limit: 1}, 2, []int{1})
	require.NotNil(t, page.Next)
	assert.Equal(t, "https://api.test/api/v1/patients?limit=1&offset=1", *page.Next)
}
