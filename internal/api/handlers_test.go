// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/auth"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/realtime"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type apiEnv struct {
	server    *httptest.Server
	jwt       *auth.JWTManager
	chat      *realtime.ChatService
	chatStore *store.ChatStore
}

const testAdminPassword = "correct-horse-battery"

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	hash, err := auth.HashPassword(testAdminPassword)
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:       "development",
			RateLimitDisabled: true,
		},
		Security: config.SecurityConfig{
			JWTSecret:         "test-secret-0123456789-0123456789",
			TokenTTL:          time.Hour,
			HandshakeTimeout:  2 * time.Second,
			AdminUsername:     "support-admin",
			AdminPasswordHash: hash,
		},
		Realtime: config.RealtimeConfig{
			SendBuffer:      16,
			WriteWait:       time.Second,
			PongWait:        time.Second,
			MaxMessageSize:  64 * 1024,
			EventsPerSecond: 1000,
			EventBurst:      1000,
		},
		Notifications: config.NotificationsConfig{
			RecentDefaultLimit: 20,
			RecentMaxLimit:     100,
		},
	}

	st, err := store.Open(&config.StoreConfig{Dir: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	require.NoError(t, err)

	notifStore := store.NewNotificationStore(st, &config.StoreConfig{})
	chatStore := store.NewChatStore(st)

	notifHub := realtime.NewHub(realtime.NamespaceNotifications, &cfg.Realtime)
	chatHub := realtime.NewHub(realtime.NamespaceChat, &cfg.Realtime)
	notifications := realtime.NewNotificationService(notifHub, notifStore, &cfg.Notifications)
	chat := realtime.NewChatService(chatHub, chatStore)

	handler := NewHandler(cfg, jwtManager, notifications, chat, notifStore, chatStore, nil)
	router := NewRouter(
		handler,
		auth.NewMiddleware(jwtManager),
		NewChiMiddleware(&cfg.Server),
		realtime.NewGateway(notifHub, jwtManager, &cfg.Security, nil),
		realtime.NewGateway(chatHub, jwtManager, &cfg.Security, nil),
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	return &apiEnv{server: server, jwt: jwtManager, chat: chat, chatStore: chatStore}
}

func (e *apiEnv) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, models.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	// Auth middleware failures answer plain text; everything else is the
	// JSON envelope.
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var wrapped models.APIResponse
	_ = json.Unmarshal(raw, &wrapped)
	return resp, wrapped
}

func (e *apiEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.jwt.GenerateToken(models.Principal{ID: "support-admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	return token
}

func (e *apiEnv) userToken(t *testing.T, id string) string {
	t.Helper()
	token, _, err := e.jwt.GenerateToken(models.Principal{ID: id, Role: models.RoleUser})
	require.NoError(t, err)
	return token
}

func TestLogin(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{
		Username: "support-admin",
		Password: testAdminPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body.Status)

	var login models.LoginResponse
	remarshal(t, body.Data, &login)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, models.RoleAdmin, login.Role)
	assert.True(t, login.ExpiresAt.After(time.Now()))

	// The minted token works against an admin endpoint.
	resp, _ = env.request(t, http.MethodGet, "/api/v1/chat/admin/stats", login.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newAPIEnv(t)

	for name, req := range map[string]models.LoginRequest{
		"wrong password": {Username: "support-admin", Password: "nope"},
		"wrong username": {Username: "intruder", Password: testAdminPassword},
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := env.request(t, http.MethodPost, "/api/v1/auth/login", "", req)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.NotNil(t, body.Error)
			assert.Equal(t, "AUTH_REQUIRED", body.Error.Code)
		})
	}
}

func TestWidgetChatFlow(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/v1/chat/widget/start", "", models.StartChatRequest{
		Name:    "Jane",
		Email:   "jane@x.com",
		Message: "help me",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var started struct {
		Chat    *models.Chat        `json:"chat"`
		Message *models.ChatMessage `json:"message"`
	}
	remarshal(t, body.Data, &started)
	assert.Equal(t, models.ChatPending, started.Chat.Status)
	assert.Equal(t, models.PriorityNormal, started.Chat.Priority)
	assert.Equal(t, uint64(1), started.Message.Seq)

	chatID := started.Chat.ID.String()

	resp, _ = env.request(t, http.MethodPost, "/api/v1/chat/widget/"+chatID+"/message", "", models.PostMessageRequest{Content: "anyone there?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.request(t, http.MethodGet, "/api/v1/chat/widget/"+chatID+"/history", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Messages []*models.ChatMessage `json:"messages"`
	}
	remarshal(t, body.Data, &history)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "help me", history.Messages[0].Content)
	assert.Equal(t, "anyone there?", history.Messages[1].Content)
}

func TestWidgetStartValidation(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.request(t, http.MethodPost, "/api/v1/chat/widget/start", "", models.StartChatRequest{
		Name:  "Jane",
		Email: "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	env := newAPIEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/v1/chat/admin/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing token")

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/chat/admin/pending", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.userToken(t, "u1"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusForbidden, raw.StatusCode, "user token on admin endpoint")
}

func TestAdminChatLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.adminToken(t)

	_, body := env.request(t, http.MethodPost, "/api/v1/chat/widget/start", "", models.StartChatRequest{
		Name: "Jane", Email: "jane@x.com", Message: "help", Priority: models.PriorityUrgent,
	})
	var started struct {
		Chat *models.Chat `json:"chat"`
	}
	remarshal(t, body.Data, &started)
	chatID := started.Chat.ID.String()

	resp, body := env.request(t, http.MethodGet, "/api/v1/chat/admin/pending", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending struct {
		Chats []*models.Chat `json:"chats"`
	}
	remarshal(t, body.Data, &pending)
	require.Len(t, pending.Chats, 1)

	resp, body = env.request(t, http.MethodPost, "/api/v1/chat/admin/"+chatID+"/accept", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var accepted struct {
		Chat *models.Chat `json:"chat"`
	}
	remarshal(t, body.Data, &accepted)
	assert.Equal(t, models.ChatActive, accepted.Chat.Status)
	assert.Equal(t, "support-admin", accepted.Chat.AssignedAdmin)

	// Second accept by a different admin is a conflict naming the assignee.
	otherAdmin, _, err := env.jwt.GenerateToken(models.Principal{ID: "other-admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	resp, body = env.request(t, http.MethodPost, "/api/v1/chat/admin/"+chatID+"/accept", otherAdmin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, "support-admin", body.Error.Details["assignee"])

	// Only the assignee posts admin messages.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/chat/admin/"+chatID+"/messages", otherAdmin, models.PostMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPost, "/api/v1/chat/admin/"+chatID+"/messages", admin, models.PostMessageRequest{Content: "how can I help?"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.request(t, http.MethodPost, "/api/v1/chat/admin/"+chatID+"/close", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	remarshal(t, body.Data, &accepted)
	assert.Equal(t, models.ChatClosed, accepted.Chat.Status)

	// Posting into a closed chat is a conflict.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/chat/widget/"+chatID+"/message", "", models.PostMessageRequest{Content: "late"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminChatStats(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.adminToken(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := env.chat.StartChat(ctx, fmt.Sprintf("c-%d", i), "c@x.com", "hi", "general", "", "")
		require.NoError(t, err)
	}

	resp, body := env.request(t, http.MethodGet, "/api/v1/chat/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats models.ChatStats
	remarshal(t, body.Data, &stats)
	assert.Equal(t, models.ChatStats{Pending: 2}, stats)
}

func TestNotificationEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.adminToken(t)
	user := env.userToken(t, "u1")

	// Trigger two notifications through the admin test endpoint (direct
	// delivery path, no bus in tests).
	for i := 0; i < 2; i++ {
		resp, _ := env.request(t, http.MethodPost, "/api/v1/notifications/test", admin, models.TestNotificationRequest{
			RecipientID: "u1",
			Title:       fmt.Sprintf("hello %d", i),
			Message:     "body",
		})
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	resp, body := env.request(t, http.MethodGet, "/api/v1/notifications/", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Notifications []*models.Notification `json:"notifications"`
	}
	remarshal(t, body.Data, &list)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, models.NotificationTest, list.Notifications[0].Type)

	resp, body = env.request(t, http.MethodGet, "/api/v1/notifications/stats", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats models.NotificationStats
	remarshal(t, body.Data, &stats)
	assert.Equal(t, models.NotificationStats{Total: 2, Unread: 2}, stats)

	// Mark one read, then all.
	id := list.Notifications[0].ID.String()
	resp, _ = env.request(t, http.MethodPut, "/api/v1/notifications/"+id+"/mark-read", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.request(t, http.MethodPost, "/api/v1/notifications/mark-all-read", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var marked map[string]int
	remarshal(t, body.Data, &marked)
	assert.Equal(t, 1, marked["marked"])

	// Another principal cannot mark someone else's notification.
	resp, _ = env.request(t, http.MethodPut, "/api/v1/notifications/"+id+"/mark-read", env.userToken(t, "u2"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTestNotificationRequiresAdmin(t *testing.T) {
	env := newAPIEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/notifications/test",
		bytes.NewReader([]byte(`{"recipient_id":"u1","title":"t","message":"m"}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+env.userToken(t, "u1"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "ready without a bus configured")
}

func TestUnknownChatID(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.request(t, http.MethodGet, "/api/v1/chat/widget/not-a-uuid/history", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)

	resp, _ = env.request(t, http.MethodGet, "/api/v1/chat/widget/00000000-0000-0000-0000-000000000001/history", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// remarshal converts the untyped Data field back into a concrete type.
func remarshal(t *testing.T, data interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}
