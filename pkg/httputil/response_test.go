package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinical-api/pkg/errors"
)

func respond(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	RespondWithError(c, err)
	return w
}

func TestRespondWithErrorValidation(t *testing.T) {
	w := respond(errors.Validation("date_of_birth", "Date of birth cannot be in the future."))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Date of birth cannot be in the future."}, body["date_of_birth"])
}

func TestRespondWithErrorDetail(t *testing.T) {
	w := respond(errors.NotFound("Patient"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Patient not found."}`, w.Body.String())
}

func TestRespondWithErrorHidesInternals(t *testing.T) {
	w := respond(stderrors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, w.Body.String())
}
