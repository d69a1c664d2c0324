package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrent/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	t.Run("default status with body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewJSONResponse().Body(map[string]int{"n": 1}).Write(rec)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"n":1}`, rec.Body.String())
	})

	t.Run("no body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewJSONResponse().Status(http.StatusNoContent).Header("X-Test", "yes").Write(rec)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "yes", rec.Header().Get("X-Test"))
		assert.Empty(t, rec.Body.String())
	})

	t.Run("unencodable body is a 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewJSONResponse().Body(math.Inf(1)).Write(rec)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		b      *JSONResponseBuilder
		status int
		code   string
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest, codeBadRequest},
		{"unauthorized", UnauthorizedError("x"), http.StatusUnauthorized, codeUnauthorized},
		{"forbidden", ForbiddenError("x"), http.StatusForbidden, codeForbidden},
		{"not found", NotFoundError("x"), http.StatusNotFound, codeNotFound},
		{"internal", InternalServerError("x"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.b.Write(rec)

			assert.Equal(t, tt.status, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, "x", body.Message)
			assert.Empty(t, body.EntityID)
		})
	}
}

func TestInvariantViolationError(t *testing.T) {
	rec := httptest.NewRecorder()
	InvariantViolationError(&core.InvariantViolation{EntityID: "p3", EntityType: "payment", Reason: "upfront exceeds total"}).Write(rec)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"invariant_violation","message":"upfront exceeds total","entity_id":"p3","entity_type":"payment"}`, rec.Body.String())
}
