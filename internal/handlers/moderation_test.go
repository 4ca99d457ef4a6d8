package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupModerationRouter(env *testEnv, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewModerationHandler(env.ledger)
	auth := asUser(userID)
	r.POST("/users/:user_id/block", auth, handler.BlockUser)
	r.GET("/me/blocked", auth, handler.ListBlockedUsers)
	r.POST("/reports", auth, handler.ReportContent)
	return r
}

func TestBlockAndListBlocked(t *testing.T) {
	env := newTestEnv(t)
	router := setupModerationRouter(env, "viewer")

	req := httptest.NewRequest(http.MethodPost, "/users/troll/block", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me/blocked", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		BlockedUsers []string `json:"blocked_users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, []string{"troll"}, resp.BlockedUsers)
}

func TestBlockSelfRejected(t *testing.T) {
	env := newTestEnv(t)
	router := setupModerationRouter(env, "viewer")

	req := httptest.NewRequest(http.MethodPost, "/users/viewer/block", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportContent(t *testing.T) {
	env := newTestEnv(t)
	router := setupModerationRouter(env, "reporter")

	body := bytes.NewBufferString(`{"content_id":"spot-1","type":"spot","reason":"spam"}`)
	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestReportContentMissingFields(t *testing.T) {
	env := newTestEnv(t)
	router := setupModerationRouter(env, "reporter")

	req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString(`{"content_id":"spot-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
