package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWorkspace(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := resolveWorkspace(req)
	assert.ErrorIs(t, err, ErrInvalidWorkspace)

	req.Header.Set(WorkspaceHeader, uuid.Nil.String())
	_, err = resolveWorkspace(req)
	assert.ErrorIs(t, err, ErrInvalidWorkspace)

	for _, alt := range []string{
		"{" + testWS + "}",
		"urn:uuid:" + testWS,
		strings.ReplaceAll(testWS, "-", ""),
	} {
		req.Header.Set(WorkspaceHeader, alt)
		_, err = resolveWorkspace(req)
		assert.ErrorIs(t, err, ErrInvalidWorkspace, alt)
	}

	req.Header.Set(WorkspaceHeader, " "+testWS+" ")
	ws, err := resolveWorkspace(req)
	require.NoError(t, err)
	assert.Equal(t, testWS, ws.String())
}

func TestMatchWorkspace(t *testing.T) {
	ws := uuid.MustParse(testWS)

	assert.NoError(t, matchWorkspace(ws, ""))
	assert.NoError(t, matchWorkspace(ws, testWS))
	assert.NoError(t, matchWorkspace(ws, strings.ToUpper(testWS)), "parsed ids compare, not strings")
	assert.ErrorIs(t, matchWorkspace(ws, strings.ReplaceAll(testWS, "-", "")), ErrInvalidWorkspace)
	assert.ErrorIs(t, matchWorkspace(ws, "{"+testWS+"}"), ErrInvalidWorkspace)
	assert.ErrorIs(t, matchWorkspace(ws, "acme"), ErrInvalidWorkspace)
	assert.ErrorIs(t, matchWorkspace(ws, otherWS), ErrWorkspaceMismatch)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0&offset=-5", 50, 0},
		{"limit=9999", 500, 0},
		{"limit=abc", 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p := ParsePagination(req, 50, 500)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}
