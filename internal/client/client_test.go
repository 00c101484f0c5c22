package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Tempo/internal/auth"
	"Tempo/internal/domain"
	"Tempo/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLogin_StoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		var req dto.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@example.com", req.Email)
		_ = json.NewEncoder(w).Encode(dto.LoginResponse{OK: true, Token: "tok", User: dto.UserResponse{ID: "u1"}})
	})

	res, err := c.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "tok", c.Token())
}

func TestVerify_ErrorClasses(t *testing.T) {
	status := http.StatusUnauthorized
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	})
	c.SetToken("tok")

	_, err := c.Verify(context.Background())
	assert.True(t, errors.Is(err, domain.ErrAuth))

	status = http.StatusBadGateway
	_, err = c.Verify(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNetwork))

	status = http.StatusBadRequest
	_, err = c.Verify(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.False(t, errors.Is(err, domain.ErrAuth))
	assert.False(t, errors.Is(err, domain.ErrNetwork))
}

func TestNoCredentialFailsFast(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := c.Load(context.Background())
	assert.True(t, errors.Is(err, domain.ErrAuth))
	assert.False(t, called)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.SetToken("tok")
	_, err := c.Verify(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestSyncLogs_EmptyPushIsArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"logs":[]}`, string(b))
		_ = json.NewEncoder(w).Encode(dto.SyncLogsResponse{Success: true, SyncTime: 7})
	})
	c.SetToken("tok")
	res, err := c.SyncLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.SyncTime)
}

func TestLegacySync_SendsCookie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/legacy/sync", r.URL.Path)
		ck, err := r.Cookie(auth.SessionCookieName)
		require.NoError(t, err)
		assert.Equal(t, "tok", ck.Value)
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(dto.LegacySyncResponse{SyncAllResponse: dto.SyncAllResponse{Success: true}})
	})
	c.SetToken("tok")
	res, err := c.LegacySync(context.Background(), dto.SyncAllRequest{})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestLoad_UnwrapsData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.LoadResponse{Success: true, Data: dto.LoadData{
			Projects: []domain.Project{{Record: domain.Record{ID: "p1"}}},
		}})
	})
	c.SetToken("tok")
	data, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Projects, 1)
	assert.Equal(t, "p1", data.Projects[0].ID)
}
