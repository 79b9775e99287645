package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/img2prompt/service/internal/auth"
	"github.com/img2prompt/service/internal/upload"
	"github.com/img2prompt/service/internal/usage"
)

type countingQuota struct{ calls int }

func (c *countingQuota) CanUserUseService(context.Context, string, string) (*usage.Status, error) {
	c.calls++
	return &usage.Status{Subscription: usage.PlanFree, RemainingUses: 5, CanUse: true, ResetDate: time.Now()}, nil
}
func (c *countingQuota) UpdateUserSubscription(context.Context, string, string) error {
	c.calls++
	return nil
}
func (c *countingQuota) RecordUse(context.Context, string, string) (*usage.Status, error) {
	c.calls++
	return nil, usage.ErrQuotaExceeded
}

func testRoutes(q *countingQuota) (http.Handler, *auth.Tokens) {
	tokens := auth.NewTokens("secret")
	h := routes(zerolog.Nop(), tokens,
		usage.NewHandler(q, zerolog.Nop()),
		upload.NewHandler(map[string]upload.Uploader{}, zerolog.Nop()),
	)
	return h, tokens
}

func TestRoutes_Health(t *testing.T) {
	h, _ := testRoutes(&countingQuota{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutes_UnauthenticatedNeverReachesService(t *testing.T) {
	q := &countingQuota{}
	h, _ := testRoutes(q)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/usage"},
		{http.MethodPost, "/api/subscription"},
		{http.MethodPost, "/api/usage/record"},
		{http.MethodPost, "/api/upload"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
	}
	assert.Zero(t, q.calls)
}

func TestRoutes_AuthenticatedUsage(t *testing.T) {
	q := &countingQuota{}
	h, tokens := testRoutes(q)
	tok, err := tokens.Issue(auth.Identity{UID: "u-1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
	assert.Equal(t, 1, q.calls)
}

func TestRoutes_SwaggerDoc(t *testing.T) {
	h, _ := testRoutes(&countingQuota{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/usage/record")
}
