package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"cadence/internal/config"
	"cadence/internal/db"
	"cadence/internal/domain"
	"cadence/internal/engine"
	"cadence/internal/migrate"
	"cadence/internal/repo"
)

type echoTranslator struct{}

func (echoTranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	return "fr:" + text, nil
}

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("test-shop"), echoTranslator{})
	e.Now = func() time.Time { return time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for _, role := range []string{"admin", "coadmin", "worker"} {
		if _, err := e.CreateUser(ctx, "u-"+role+"-1", role, role, "ja"); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: "test-secret", AllowLegacyUserHeader: true},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, data
}

func asAdmin() map[string]string {
	return map[string]string{"X-User-Id": "u-admin-1"}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d: %s", resp.StatusCode, body)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/weeks", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("code = %s, want unauthorized", envelope.Error.Code)
	}
}

func TestDevLoginAndJWTAuth(t *testing.T) {
	ts := newTestServer(t)
	// The middleware guards everything except /health, so mint the first
	// token through the legacy header.
	resp, body := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/auth/dev/login",
		DevLoginRequest{UserID: "u-admin-1", Role: "admin"}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev login = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		t.Fatalf("no token in %s", body)
	}
	resp, body = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/users", nil,
		map[string]string{"Authorization": "Bearer " + out.Token})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("jwt request = %d: %s", resp.StatusCode, body)
	}
}

func TestGenerateWeekEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/weeks/generate",
		GenerateWeekRequest{WeekKey: "2026-W04"}, asAdmin())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("generate without template = %d, want 409: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/templates/init",
		InitTemplateRequest{}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("init template = %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/weeks/generate",
		GenerateWeekRequest{WeekKey: "2026-W04"}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate = %d: %s", resp.StatusCode, body)
	}
	var res engine.GenerateResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.TasksCreated != 14 {
		t.Fatalf("tasks created = %d, want 14", res.TasksCreated)
	}

	// Second run is a no-op.
	resp, body = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/weeks/generate",
		GenerateWeekRequest{WeekKey: "2026-W04"}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("regenerate = %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &res); err != nil || res.TasksCreated != 0 {
		t.Fatalf("regenerate created %d tasks, want 0 (%s)", res.TasksCreated, body)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/weeks/generate",
		GenerateWeekRequest{WeekKey: "2026-W99"}, asAdmin())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad week key = %d, want 400: %s", resp.StatusCode, body)
	}
}

func TestSetBusinessDateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	seedTemplateAndWeek(t, ts)

	w, err := ts.Engine.Repo.GetWeekByKey(context.Background(), "2026-W04")
	if err != nil {
		t.Fatalf("get week: %v", err)
	}
	resp, body := doJSON(t, ts.Client(), http.MethodPatch, ts.URL+"/v0/weeks/"+w.ID,
		SetBusinessDateRequest{BusinessDate: "2026-01-23"}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch week = %d: %s", resp.StatusCode, body)
	}
	var updated domain.Week
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.BusinessDate() != "2026-01-23" {
		t.Fatalf("business date = %s, want 2026-01-23", updated.BusinessDate())
	}

	resp, body = doJSON(t, ts.Client(), http.MethodPatch, ts.URL+"/v0/weeks/"+w.ID,
		SetBusinessDateRequest{BusinessDate: "not-a-date"}, asAdmin())
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date = %d, want 400: %s", resp.StatusCode, body)
	}
}

func TestTaskAndChecklistEndpoints(t *testing.T) {
	ts := newTestServer(t)
	seedTemplateAndWeek(t, ts)

	resp, body := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/tasks?status=TODO", nil, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list tasks = %d: %s", resp.StatusCode, body)
	}
	var tasks []domain.Task
	if err := json.Unmarshal(body, &tasks); err != nil || len(tasks) != 14 {
		t.Fatalf("tasks = %d, want 14 (%v)", len(tasks), err)
	}

	taskID := tasks[0].ID
	resp, body = doJSON(t, ts.Client(), http.MethodPatch, ts.URL+"/v0/tasks/"+taskID,
		map[string]any{"status": "IN_PROGRESS"}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch task = %d: %s", resp.StatusCode, body)
	}
	var task domain.Task
	if err := json.Unmarshal(body, &task); err != nil || task.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", task.Status)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/tasks/"+taskID+"/checklist", nil, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list checklist = %d: %s", resp.StatusCode, body)
	}
	var items []domain.ChecklistItem
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		t.Fatalf("no checklist items: %s", body)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodPatch, ts.URL+"/v0/checklist/"+items[0].ID+"/check",
		CheckItemRequest{Done: true}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check item = %d: %s", resp.StatusCode, body)
	}
	var item domain.ChecklistItem
	if err := json.Unmarshal(body, &item); err != nil || !item.IsDone {
		t.Fatalf("item not done: %s", body)
	}

	// The owner's open-items view must not include the finished item.
	resp, body = doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/me/checklist", nil,
		map[string]string{"X-User-Id": items[0].AssigneeUserID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my checklist = %d: %s", resp.StatusCode, body)
	}
	var mine []domain.ChecklistItem
	if err := json.Unmarshal(body, &mine); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, m := range mine {
		if m.ID == items[0].ID {
			t.Fatalf("done item still listed as open")
		}
	}
}

func TestCommentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	seedTemplateAndWeek(t, ts)
	tasks, err := ts.Engine.Repo.ListTasks(context.Background(), repo.TaskFilters{Limit: 1})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("seed tasks: %v", err)
	}
	url := fmt.Sprintf("%s/v0/tasks/%s/comments", ts.URL, tasks[0].ID)

	resp, body := doJSON(t, ts.Client(), http.MethodPost, url,
		CreateCommentRequest{BodyJA: "明日もよろしく"}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create comment = %d: %s", resp.StatusCode, body)
	}
	var c domain.Comment
	if err := json.Unmarshal(body, &c); err != nil || c.BodyFR == nil {
		t.Fatalf("comment not translated: %s", body)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodGet, url, nil, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list comments = %d: %s", resp.StatusCode, body)
	}
	var list []domain.Comment
	if err := json.Unmarshal(body, &list); err != nil || len(list) != 1 {
		t.Fatalf("comments = %d, want 1", len(list))
	}
}

func TestGlossaryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/glossary",
		CreateGlossaryTermRequest{JATerm: "焼き", FRTerm: "Cuisson"}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create term = %d: %s", resp.StatusCode, body)
	}
	var term domain.GlossaryTerm
	if err := json.Unmarshal(body, &term); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	fr := "Fournée"
	resp, body = doJSON(t, ts.Client(), http.MethodPatch, ts.URL+"/v0/glossary/"+term.ID,
		UpdateGlossaryTermRequest{FRTerm: &fr}, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update term = %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &term); err != nil || term.FRTerm != "Fournée" {
		t.Fatalf("fr_term = %s, want Fournée", term.FRTerm)
	}

	resp, body = doJSON(t, ts.Client(), http.MethodDelete, ts.URL+"/v0/glossary/"+term.ID, nil, asAdmin())
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete term = %d: %s", resp.StatusCode, body)
	}
	resp, _ = doJSON(t, ts.Client(), http.MethodDelete, ts.URL+"/v0/glossary/"+term.ID, nil, asAdmin())
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete again = %d, want 404", resp.StatusCode)
	}
}

func TestEventsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	seedTemplateAndWeek(t, ts)
	resp, body := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/v0/events?type=template_generated", nil, asAdmin())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events = %d: %s", resp.StatusCode, body)
	}
	var evts []domain.Event
	if err := json.Unmarshal(body, &evts); err != nil || len(evts) != 1 {
		t.Fatalf("template_generated events = %d, want 1", len(evts))
	}
}

func seedTemplateAndWeek(t *testing.T, ts *testServer) {
	t.Helper()
	resp, body := doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/templates/init",
		InitTemplateRequest{}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("init template = %d: %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts.Client(), http.MethodPost, ts.URL+"/v0/weeks/generate",
		GenerateWeekRequest{WeekKey: "2026-W04"}, asAdmin())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate = %d: %s", resp.StatusCode, body)
	}
}
