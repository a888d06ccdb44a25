package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"id": "p-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestRespondErrorMarksFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusConflict, "CONFLICT", "code already exists")

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestParseJSONBodyEnforcesLimit(t *testing.T) {
	big := `{"name":"` + strings.Repeat("x", 100) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	var out struct {
		Name string `json:"name"`
	}
	assert.Error(t, ParseJSONBody(req, &out, 10))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	require.NoError(t, ParseJSONBody(req, &out, 1024))
	assert.Equal(t, "ok", out.Name)
}

func TestExtractPageParams(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		cursor string
	}{
		{"", 0, ""},
		{"?limit=25", 25, ""},
		{"?limit=abc", 0, ""},
		{"?limit=-3", 0, ""},
		{"?limit=10&cursor=abc123", 10, "abc123"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/products"+tt.query, nil)
		params := ExtractPageParams(req)
		assert.Equal(t, tt.limit, params.Limit, tt.query)
		assert.Equal(t, tt.cursor, params.Cursor, tt.query)
	}
}
