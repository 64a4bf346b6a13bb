package windmill

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nl2flow/internal/model"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{Host: srv.URL + "/", Token: "tok", Workspace: "main", Timeout: time.Second})
	return c, &calls
}

func TestClient_CreateScript(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("f/automations/gmail_summary"))
	})

	id, err := c.CreateScript(context.Background(), Script{
		Path:     "f/automations/gmail_summary",
		Language: "typescript",
		Content:  "export async function main() {}",
	})
	require.NoError(t, err)
	assert.Equal(t, "f/automations/gmail_summary", id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/api/w/main/scripts/create", call.path)
	assert.Equal(t, "Bearer tok", call.auth)
	assert.Equal(t, "typescript", call.body["language"])
}

func TestClient_CreateScheduleDefaultsArgs(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("f/schedules/x"))
	})
	_, err := c.CreateSchedule(context.Background(), Schedule{Path: "f/schedules/x", Schedule: "0 9 * * *", IsFlow: true})
	require.NoError(t, err)
	assert.Equal(t, "/api/w/main/schedules/create", (*calls)[0].path)
	assert.Equal(t, map[string]any{}, (*calls)[0].body["args"])
	assert.Equal(t, true, (*calls)[0].body["is_flow"])
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		alreadyExists bool
	}{
		{name: "path conflict", status: http.StatusBadRequest, body: "Path conflict for f/automations/x with non-archived hash", alreadyExists: true},
		{name: "already exists", status: http.StatusBadRequest, body: "Flow f/automations/x already exists", alreadyExists: true},
		{name: "conflict status", status: http.StatusConflict, body: "dup", alreadyExists: true},
		{name: "bad request", status: http.StatusBadRequest, body: "invalid cron"},
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: "token expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CreateFlow(context.Background(), Flow{Path: "f/automations/x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrPlatformRejected)
			assert.Equal(t, tt.alreadyExists, IsAlreadyExists(err))
			assert.Contains(t, err.Error(), tt.body)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := srv.URL
	srv.Close()

	c := NewClient(Config{Host: host, Token: "tok", Workspace: "main", Timeout: 200 * time.Millisecond})
	_, err := c.CreateScript(context.Background(), Script{Path: "f/a/b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPlatformUnreachable)
	assert.Equal(t, "PlatformUnreachable", model.ErrorKind(err))
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(Config{Host: srv.URL, Token: "tok", Workspace: "main", Timeout: 50 * time.Millisecond})
	_, err := c.RunScript(context.Background(), "f/instant/x", nil)
	assert.ErrorIs(t, err, model.ErrPlatformUnreachable)
}

func TestClient_RunAndGetJob(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/w/main/jobs/run/p/f/instant/gmail_summary":
			_, _ = w.Write([]byte(`"0192-job"`))
		case "/api/w/main/jobs/get/0192-job":
			_, _ = w.Write([]byte(`{"id":"0192-job","type":"CompletedJob","success":true,"result":{"summary":"hi"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	id, err := c.RunScript(context.Background(), "f/instant/gmail_summary", map[string]any{"max_count": 3})
	require.NoError(t, err)
	assert.Equal(t, "0192-job", id)
	assert.Equal(t, float64(3), (*calls)[0].body["max_count"])

	job, err := c.GetJob(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, job.Completed())
	assert.True(t, job.Succeeded())
	assert.JSONEq(t, `{"summary":"hi"}`, string(job.Result))
}

func TestJob_Status(t *testing.T) {
	f := false
	assert.False(t, Job{Type: "QueuedJob", Running: true}.Completed())
	assert.False(t, Job{Type: "CompletedJob", Success: &f}.Succeeded())
	assert.False(t, Job{Type: "CompletedJob"}.Succeeded())
}

func TestWebhookURL(t *testing.T) {
	c := NewClient(Config{Host: "https://app.windmill.dev/", Workspace: "main"})
	assert.Equal(t,
		"https://app.windmill.dev/api/w/main/jobs/run/f/f/automations/webhook_to_slack",
		c.WebhookURL("f/automations/webhook_to_slack"))
}

func TestClient_EnsureResource(t *testing.T) {
	tests := []struct {
		name        string
		getStatus   int
		wantCreated bool
		wantPaths   []string
		wantErr     bool
	}{
		{
			name:        "missing resource is created",
			getStatus:   http.StatusNotFound,
			wantCreated: true,
			wantPaths:   []string{"/api/w/main/resources/get/u/user/gmail", "/api/w/main/resources/create"},
		},
		{
			name:      "existing resource is left alone",
			getStatus: http.StatusOK,
			wantPaths: []string{"/api/w/main/resources/get/u/user/gmail"},
		},
		{
			name:      "lookup failure",
			getStatus: http.StatusUnauthorized,
			wantPaths: []string{"/api/w/main/resources/get/u/user/gmail"},
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(tt.getStatus)
					_, _ = w.Write([]byte(`{}`))
					return
				}
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte("u/user/gmail"))
			})

			created, err := c.EnsureResource(context.Background(), Resource{
				Path:         "u/user/gmail",
				ResourceType: "gmail",
				Value:        map[string]string{"token": "placeholder"},
			})
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrPlatformRejected)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCreated, created)

			var paths []string
			for _, call := range *calls {
				paths = append(paths, call.path)
			}
			assert.Equal(t, tt.wantPaths, paths)
			if tt.wantCreated {
				assert.Equal(t, "gmail", (*calls)[1].body["resource_type"])
			}
		})
	}
}

func TestClient_CreateFlowWireShape(t *testing.T) {
	c, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("f/automations/x"))
	})
	_, err := c.CreateFlow(context.Background(), Flow{
		Path:    "f/automations/x",
		Summary: "Gmail Daily Summary",
		Value:   FlowValue{Modules: []FlowModule{{ID: "step_0", Value: ModuleValue{Type: "script", Path: "f/automations/s"}}}},
	})
	require.NoError(t, err)

	body := (*calls)[0].body
	assert.Equal(t, "Gmail Daily Summary", body["summary"])
	value, ok := body["value"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, value, "summary")
	assert.Len(t, value["modules"], 1)
}
