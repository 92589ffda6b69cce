package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskmanager/internal/auth"
	"taskmanager/internal/notify"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"
)

type testServer struct {
	app       *fiber.App
	facility  *notify.CronFacility
	reminders *service.ReminderService
}

// newTestServer wires the real stack on a temp SQLite file. The alarm
// facility is never started, so scheduled alerts stay pending.
func newTestServer(t *testing.T) testServer {
	t.Helper()
	log := zap.NewNop()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "api.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	taskRepo := repository.NewTaskRepository(db)
	facility := notify.NewCronFacility(notify.NewLogDeliverer(log), log)
	reminders := service.NewReminderService(notify.NewScheduler(facility, log), taskRepo, log)
	tokens := auth.NewJWTManager("test-secret", time.Hour)

	app := New(Config{
		Tasks:  service.NewTaskService(taskRepo, reminders, log),
		Auth:   service.NewAuthService(repository.NewUserRepository(db), tokens, auth.NewPasswordHasherWithCost(bcrypt.MinCost), log),
		Tokens: tokens,
		Log:    log,
	})
	return testServer{app: app, facility: facility, reminders: reminders}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s testServer) register(t *testing.T, email string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var token TokenResponse
	require.NoError(t, json.Unmarshal(body, &token))
	return token.Token
}

func decodeTask(t *testing.T, body []byte) TaskResponse {
	t.Helper()
	var task TaskResponse
	require.NoError(t, json.Unmarshal(body, &task), string(body))
	return task
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice@example.com")

	tests := []struct {
		name           string
		path           string
		body           map[string]string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "duplicate email",
			path:           "/api/auth/register",
			body:           map[string]string{"email": "alice@example.com", "password": "x"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Email already registered",
		},
		{
			name:           "missing password",
			path:           "/api/auth/register",
			body:           map[string]string{"email": "bob@example.com"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Email and password are required",
		},
		{
			name:           "wrong password",
			path:           "/api/auth/login",
			body:           map[string]string{"email": "alice@example.com", "password": "nope"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid credentials",
		},
		{
			name:           "login",
			path:           "/api/auth/login",
			body:           map[string]string{"email": "alice@example.com", "password": "secret123"},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.expectedBody)
		})
	}
}

func TestTaskEndpoints_RequireAuth(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/tasks", "garbage", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateTask_SchedulesReminders(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice@example.com")

	due := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Millisecond)
	resp, body := s.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":         "x",
		"dueDate":       due,
		"notifications": []map[string]string{{"type": "1-hour-before"}, {"type": "on-due"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "2 scheduled, 0 failed", resp.Header.Get(ReminderReportHeader))
	assert.Empty(t, resp.Header.Get(fiber.HeaderWarning))

	task := decodeTask(t, body)
	assert.Equal(t, "x", task.Title)
	assert.Equal(t, "pending", string(task.Status))
	require.Len(t, task.Notifications, 2)
	assert.True(t, due.Add(-time.Hour).Equal(task.Notifications[0].Time))
	assert.True(t, due.Equal(task.Notifications[1].Time))
	assert.False(t, task.Overdue)
	assert.Contains(t, task.DueText, "due in 1 hour")
	assert.Equal(t, 2, s.facility.Pending())
}

func TestCreateTask_Validation(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice@example.com")

	tests := []struct {
		name         string
		body         any
		expectedBody string
	}{
		{
			name:         "reminders without due date",
			body:         map[string]any{"title": "x", "notifications": []map[string]string{{"time": "2030-01-01T00:00:00Z"}}},
			expectedBody: "A due date is required when notifications are present.",
		},
		{
			name:         "missing title",
			body:         map[string]any{"description": "no title"},
			expectedBody: "title is required",
		},
		{
			name:         "bad status",
			body:         map[string]any{"title": "x", "status": "archived"},
			expectedBody: "validation_error",
		},
		{
			name:         "bad due date",
			body:         map[string]any{"title": "x", "dueDate": "tomorrow"},
			expectedBody: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodPost, "/api/tasks", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), tt.expectedBody)
		})
	}
}

func TestListTasks_OwnerScopedNewestFirst(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	for _, title := range []string{"first", "second"} {
		resp, _ := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{"title": title})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		time.Sleep(5 * time.Millisecond)
	}
	resp, _ := s.do(t, http.MethodPost, "/api/tasks", bob, map[string]any{"title": "bob's"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := s.do(t, http.MethodGet, "/api/tasks", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tasks []TaskResponse
	require.NoError(t, json.Unmarshal(body, &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Title)
	assert.Equal(t, "first", tasks[1].Title)
}

func TestUpdateTask(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	due := time.Now().Add(48 * time.Hour).UTC()
	resp, body := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{
		"title":         "trip",
		"description":   "pack",
		"dueDate":       due,
		"notifications": []map[string]string{{"type": "1-day-before"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeTask(t, body).ID

	t.Run("partial update keeps omitted fields", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/"+id, alice, map[string]any{"status": "in-progress"})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		task := decodeTask(t, body)
		assert.Equal(t, "trip", task.Title)
		assert.Equal(t, "pack", task.Description)
		assert.Equal(t, "in-progress", string(task.Status))
		require.NotNil(t, task.DueDate)
		assert.Empty(t, task.Notifications)
		assert.Equal(t, "0 scheduled, 0 failed", resp.Header.Get(ReminderReportHeader))
		assert.Equal(t, 0, s.facility.Pending())
	})

	t.Run("null due date with reminders is rejected", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/"+id, alice, map[string]any{
			"dueDate":       nil,
			"notifications": []map[string]string{{"type": "on-due"}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "A due date is required")
	})

	t.Run("null due date clears it", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/"+id, alice, map[string]any{"dueDate": nil})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		task := decodeTask(t, body)
		assert.Nil(t, task.DueDate)
		assert.Empty(t, task.DueText)
	})

	t.Run("other owner gets unauthorized", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/"+id, bob, map[string]any{"title": "mine now"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, string(body), "Unauthorized")
	})

	t.Run("missing task", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/"+uuid.NewString(), alice, map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, string(body), "Task not found")
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/tasks/123", alice, map[string]any{"title": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(body), "Invalid task ID")
	})
}

func TestGetAndDeleteTask(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@example.com")
	bob := s.register(t, "bob@example.com")

	due := time.Now().Add(-90 * time.Minute).UTC()
	resp, body := s.do(t, http.MethodPost, "/api/tasks", alice, map[string]any{"title": "late", "dueDate": due})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeTask(t, body).ID

	resp, body = s.do(t, http.MethodGet, "/api/tasks/"+id, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decodeTask(t, body)
	assert.True(t, task.Overdue)
	assert.Equal(t, "overdue by 1 hour 30 minutes", task.DueText)

	resp, _ = s.do(t, http.MethodGet, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, "/api/tasks/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodDelete, "/api/tasks/"+id, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Task removed"}`, string(body))

	resp, _ = s.do(t, http.MethodDelete, "/api/tasks/"+id, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	down := New(Config{Log: zap.NewNop(), Tokens: &mockTokenValidator{}, Ping: func(context.Context) error { return assert.AnError }})
	resp, err := down.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error":"not_found"`)
}

// serve runs the app on a real listener and returns a client that keeps a
// single connection alive, so successive requests share fiber's buffers.
func (s testServer) serve(t *testing.T) (string, *http.Client) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()

	client := &http.Client{
		Transport: &http.Transport{MaxConnsPerHost: 1, MaxIdleConnsPerHost: 1},
		Timeout:   5 * time.Second,
	}
	t.Cleanup(func() {
		client.CloseIdleConnections()
		_ = s.app.Shutdown()
	})
	return "http://" + ln.Addr().String(), client
}

func TestTaskEndpoints_KeepAliveConnection(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "alice@example.com")
	base, client := s.serve(t)

	call := func(method, path string, body any) (int, []byte) {
		t.Helper()
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequest(method, base+path, reader)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, data
	}

	due := time.Now().Add(3 * time.Hour).UTC().Truncate(time.Millisecond)
	create := func(title string) TaskResponse {
		t.Helper()
		status, body := call(http.MethodPost, "/api/tasks", map[string]any{
			"title":         title,
			"dueDate":       due,
			"notifications": []map[string]string{{"type": "on-due"}, {"type": "1-hour-before"}},
		})
		require.Equal(t, http.StatusCreated, status, string(body))
		return decodeTask(t, body)
	}

	a := create("A")
	b := create("B")
	require.Equal(t, 4, s.facility.Pending())

	status, body := call(http.MethodPut, "/api/tasks/"+a.ID, map[string]any{
		"notifications": []map[string]string{{"type": "on-due"}},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	updated := decodeTask(t, body)
	assert.Equal(t, a.ID, updated.ID)

	// the next request reuses the connection and overwrites its buffers
	status, body = call(http.MethodGet, "/api/tasks/"+b.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, b.ID, decodeTask(t, body).ID)

	assert.Len(t, s.reminders.Pending(a.ID), 1)
	assert.Len(t, s.reminders.Pending(b.ID), 2)
	assert.Equal(t, 3, s.facility.Pending())

	status, body = call(http.MethodGet, "/api/tasks/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	got := decodeTask(t, body)
	assert.Equal(t, a.ID, got.ID)
	require.Len(t, got.Notifications, 1)

	status, _ = call(http.MethodDelete, "/api/tasks/"+a.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, s.reminders.Pending(a.ID))
	assert.Len(t, s.reminders.Pending(b.ID), 2)
	assert.Equal(t, 2, s.facility.Pending())
}
