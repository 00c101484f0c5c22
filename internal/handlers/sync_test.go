package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"Tempo/internal/auth"
	dom "Tempo/internal/domain"
	"Tempo/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncService struct {
	gotUser string
	gotLogs []dom.TimedSession
	loadErr error
}

func (f *fakeSyncService) SyncProjects(_ context.Context, userID string, items []dom.Project) (dto.SyncProjectsResponse, error) {
	f.gotUser = userID
	return dto.SyncProjectsResponse{Success: true, Projects: items, SyncTime: 42}, nil
}

func (f *fakeSyncService) SyncTasks(_ context.Context, userID string, items []dom.Task) (dto.SyncTasksResponse, error) {
	f.gotUser = userID
	return dto.SyncTasksResponse{Success: true, Tasks: items, SyncTime: 42}, nil
}

func (f *fakeSyncService) SyncLogs(_ context.Context, userID string, items []dom.TimedSession) (dto.SyncLogsResponse, error) {
	f.gotUser = userID
	f.gotLogs = items
	return dto.SyncLogsResponse{Success: true, Logs: items, SyncedCount: len(items), SyncTime: 42}, nil
}

func (f *fakeSyncService) SyncSettings(_ context.Context, userID string, s dom.Settings) (dto.SyncSettingsResponse, error) {
	f.gotUser = userID
	return dto.SyncSettingsResponse{Success: true, Settings: s}, nil
}

func (f *fakeSyncService) Load(_ context.Context, userID string) (dto.LoadData, error) {
	f.gotUser = userID
	if f.loadErr != nil {
		return dto.LoadData{}, f.loadErr
	}
	return dto.LoadData{User: dto.UserResponse{ID: userID}}, nil
}

func (f *fakeSyncService) SyncAll(_ context.Context, userID string, req dto.SyncAllRequest) (dto.SyncAllResponse, error) {
	f.gotUser = userID
	return dto.SyncAllResponse{Success: true, ProjectsSynced: len(req.Projects), Timestamp: 42}, nil
}

func (f *fakeSyncService) LegacySync(_ context.Context, userID string, req dto.SyncAllRequest) (dto.LegacySyncResponse, error) {
	f.gotUser = userID
	return dto.LegacySyncResponse{
		SyncAllResponse: dto.SyncAllResponse{Success: true},
		Data:            dto.LoadData{Projects: dom.WithSystemProjects(nil)},
	}, nil
}

func newSyncRouter(svc SyncService, reg auth.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSyncHandler(svc)
	api := r.Group("/api/v1")
	sync := api.Group("/sync", auth.RequireBearer(reg))
	sync.POST("/projects", h.Projects)
	sync.POST("/logs", h.Logs)
	sync.GET("/load", h.Load)
	sync.POST("/all", h.All)
	api.POST("/legacy/sync", auth.RequireSession(reg), h.Legacy)
	return r
}

func TestSyncHandler_RequiresBearer(t *testing.T) {
	r := newSyncRouter(&fakeSyncService{}, newMemRegistry())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/load", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSyncHandler_Projects(t *testing.T) {
	svc := &fakeSyncService{}
	reg := newMemRegistry()
	tok, _ := reg.Create(context.Background(), auth.Session{UserID: "u1"})
	r := newSyncRouter(svc, reg)

	body := `{"projects":[{"id":"p1","name":"Work","updatedAt":"2024-01-01T00:00:00Z"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/projects", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.gotUser)
	var res dto.SyncProjectsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, int64(42), res.SyncTime)
	require.Len(t, res.Projects, 1)
	assert.Equal(t, "Work", res.Projects[0].Name)
}

func TestSyncHandler_LogsAcceptLegacySchema(t *testing.T) {
	svc := &fakeSyncService{}
	reg := newMemRegistry()
	tok, _ := reg.Create(context.Background(), auth.Session{UserID: "u1"})
	r := newSyncRouter(svc, reg)

	body := `{"logs":[{"id":"l1","status":"completed","createdTime":1700000060000,"interval":60}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/logs", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.gotLogs, 1)
	assert.Equal(t, int64(1700000000000), svc.gotLogs[0].StartTime)
	assert.Equal(t, int64(60000), svc.gotLogs[0].Duration)
}

func TestSyncHandler_BadBody(t *testing.T) {
	reg := newMemRegistry()
	tok, _ := reg.Create(context.Background(), auth.Session{UserID: "u1"})
	r := newSyncRouter(&fakeSyncService{}, reg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/all", bytes.NewBufferString(`{"projects":`))
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_LoadErrors(t *testing.T) {
	reg := newMemRegistry()
	tok, _ := reg.Create(context.Background(), auth.Session{UserID: "u1"})

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", dom.ErrNotFound, http.StatusNotFound},
		{"wrapped auth", errors.Join(errors.New("remote"), dom.ErrAuth), http.StatusUnauthorized},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newSyncRouter(&fakeSyncService{loadErr: tt.err}, reg)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/load", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestSyncHandler_LegacyUsesCookie(t *testing.T) {
	svc := &fakeSyncService{}
	reg := newMemRegistry()
	tok, _ := reg.Create(context.Background(), auth.Session{UserID: "u9"})
	r := newSyncRouter(svc, reg)

	// a bearer header alone is not accepted on the legacy route
	req := httptest.NewRequest(http.MethodPost, "/api/v1/legacy/sync", bytes.NewBufferString(`{}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/legacy/sync", bytes.NewBufferString(`{}`))
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: tok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u9", svc.gotUser)

	var res dto.LegacySyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Len(t, res.Data.Projects, len(dom.Catalogue))
}
