package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/broadcast"
	"github.com/craigfactory/teaguard/internal/httpapi"
	"github.com/craigfactory/teaguard/internal/notify"
	"github.com/craigfactory/teaguard/internal/teaguard/service"
	"github.com/craigfactory/teaguard/internal/teaguard/store"
	"github.com/craigfactory/teaguard/internal/teaguard/store/memory"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// stubChannel is a notify.Channel that succeeds or fails on command.
type stubChannel struct {
	name string
	err  error
}

func (c stubChannel) Name() string        { return c.name }
func (c stubChannel) MethodLabel() string { return c.name + " stub" }
func (c stubChannel) Send(context.Context, types.AlertCategory, string) error {
	return c.err
}

// failingDirectory simulates an unreachable identity store.
type failingDirectory struct{}

func (failingDirectory) ListCandidates(context.Context) ([]types.Identity, error) {
	return nil, errors.New("database is locked")
}
func (failingDirectory) TouchLastAccess(context.Context, int64, time.Time) error {
	return errors.New("database is locked")
}

type testEnv struct {
	ts        *httptest.Server
	directory *memory.DirectoryStore
	accessLog *memory.AccessLogStore
	hub       *broadcast.Hub
	matcher   *service.Matcher
}

// template builds a credential blob long enough to clear the prefix rules.
func template(seed string, n int) string {
	return seed + strings.Repeat("x", n-len(seed))
}

func sampleIdentity() types.Identity {
	return types.Identity{
		Name:         "Krishan Perera",
		Department:   "Production",
		Role:         "Supervisor",
		Status:       types.StatusActive,
		Enrolled:     true,
		FaceTemplate: template("face-krishan-", 150),
		CardID:       "CARD-001",
	}
}

// newTestEnv wires the full dependency graph with in-memory stores and stub
// notification channels, and returns an httptest.Server for plain HTTP calls.
func newTestEnv(t *testing.T, directory store.DirectoryStore, channels ...notify.Channel) *testEnv {
	t.Helper()

	logger := zap.NewNop()

	memDir, _ := directory.(*memory.DirectoryStore)
	if directory == nil {
		memDir = memory.NewDirectoryStore()
		directory = memDir
	}
	accessLog := memory.NewAccessLogStore(memDir)

	if len(channels) == 0 {
		channels = []notify.Channel{
			stubChannel{name: "mail"},
			stubChannel{name: "sms"},
			stubChannel{name: "chat"},
		}
	}

	hub := broadcast.NewHub(8, logger)
	matcher := service.NewMatcher(directory, accessLog, logger)
	dispatcher := service.NewDispatcher(channels, hub, time.Second, logger)

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       ":0",
		Matcher:    matcher,
		Dispatcher: dispatcher,
		Hub:        hub,
		Directory:  directory,
		AccessLog:  accessLog,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, directory: memDir, accessLog: accessLog, hub: hub, matcher: matcher}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// ── POST /api/authenticate ───────────────────────────────────────────────────

func TestAuthenticate_FaceMatch_OK(t *testing.T) {
	env := newTestEnv(t, nil)
	ident := env.directory.Add(sampleIdentity())

	// Same 100-char prefix, different tail.
	probe := ident.FaceTemplate[:100] + strings.Repeat("z", 40)
	resp := postJSON(t, env.ts.URL+"/api/authenticate",
		`{"faceTemplate":"`+probe+`"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		Success       bool   `json:"success"`
		Authenticated bool   `json:"authenticated"`
		Employee      *struct {
			ID         int64  `json:"id"`
			Name       string `json:"name"`
			Department string `json:"department"`
			Role       string `json:"role"`
		} `json:"employee"`
		AccessMethod string `json:"accessMethod"`
		AccessTime   string `json:"accessTime"`
		Message      string `json:"message"`
	}
	decodeBody(t, resp, &got)

	if !got.Success || !got.Authenticated {
		t.Errorf("expected success+authenticated, got %+v", got)
	}
	if got.Employee == nil || got.Employee.Name != "Krishan Perera" {
		t.Fatalf("unexpected employee: %+v", got.Employee)
	}
	if got.Employee.Department != "Production" || got.Employee.Role != "Supervisor" {
		t.Errorf("employee fields = %q/%q", got.Employee.Department, got.Employee.Role)
	}
	if got.AccessMethod != string(types.MethodFace) {
		t.Errorf("accessMethod = %q, want %q", got.AccessMethod, types.MethodFace)
	}
	if _, err := time.Parse(time.RFC3339, got.AccessTime); err != nil {
		t.Errorf("accessTime %q is not RFC3339: %v", got.AccessTime, err)
	}
	if got.Message != "Welcome Krishan Perera!" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestAuthenticate_CardMatch_OK(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.Add(sampleIdentity())

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `{"cardId":"CARD-001"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		AccessMethod string `json:"accessMethod"`
	}
	decodeBody(t, resp, &got)
	if got.AccessMethod != string(types.MethodCard) {
		t.Errorf("accessMethod = %q, want %q", got.AccessMethod, types.MethodCard)
	}
}

func TestAuthenticate_NoMatch_401(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.Add(sampleIdentity())

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `{"cardId":"CARD-999"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var got struct {
		Success       bool            `json:"success"`
		Authenticated bool            `json:"authenticated"`
		Employee      json.RawMessage `json:"employee"`
		Message       string          `json:"message"`
	}
	decodeBody(t, resp, &got)

	if got.Success || got.Authenticated {
		t.Errorf("denial should not report success: %+v", got)
	}
	if len(got.Employee) != 0 {
		t.Errorf("denial should omit employee, got %s", got.Employee)
	}
	if got.Message != "Access denied - Authentication failed" {
		t.Errorf("message = %q", got.Message)
	}

	// The denial lands in the access log as an anonymous row.
	env.matcher.Flush()
	attempts := env.accessLog.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(attempts))
	}
	if attempts[0].IdentityID != nil || attempts[0].NameSnapshot != "Unknown" {
		t.Errorf("denied row = %+v", attempts[0])
	}
}

func TestAuthenticate_EmptyProbe_400(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_InvalidJSON_400(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_UnknownField_400(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `{"cardId":"CARD-001","pin":"1234"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAuthenticate_StoreDown_503(t *testing.T) {
	env := newTestEnv(t, failingDirectory{})

	resp := postJSON(t, env.ts.URL+"/api/authenticate", `{"cardId":"CARD-001"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ── POST /api/alerts/* ───────────────────────────────────────────────────────

type dispatchBody struct {
	Success        bool            `json:"success"`
	SuccessCount   int             `json:"successCount"`
	TotalPlatforms int             `json:"totalPlatforms"`
	Platforms      map[string]bool `json:"platforms"`
	Timestamp      string          `json:"timestamp"`
	Message        string          `json:"message"`
}

func TestFireAlert_AllChannelsSucceed(t *testing.T) {
	env := newTestEnv(t, nil)
	sub := env.hub.Subscribe()
	defer env.hub.Unsubscribe(sub)

	resp := postJSON(t, env.ts.URL+"/api/alerts/fire", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got dispatchBody
	decodeBody(t, resp, &got)

	if !got.Success || got.SuccessCount != 3 || got.TotalPlatforms != 3 {
		t.Errorf("dispatch = %+v", got)
	}
	for _, name := range []string{"mail", "sms", "chat"} {
		if !got.Platforms[name] {
			t.Errorf("platform %s should be true: %v", name, got.Platforms)
		}
	}

	// The dispatch publishes the alarm before the handler responds.
	select {
	case event := <-sub.C:
		if !event.Triggered {
			t.Error("expected triggered=true")
		}
	case <-time.After(time.Second):
		t.Fatal("no fire event on broadcast channel")
	}

	// And a System row lands in the access log.
	attempts := env.accessLog.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("expected 1 log row, got %d", len(attempts))
	}
	if attempts[0].Method != types.MethodFireAlert || attempts[0].NameSnapshot != "System" {
		t.Errorf("fire row = %+v", attempts[0])
	}
}

func TestFireAlert_PartialFailureStill200(t *testing.T) {
	env := newTestEnv(t, nil,
		stubChannel{name: "mail"},
		stubChannel{name: "sms", err: errors.New("gateway down")},
		stubChannel{name: "chat", err: errors.New("forbidden")},
	)

	resp := postJSON(t, env.ts.URL+"/api/alerts/fire", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got dispatchBody
	decodeBody(t, resp, &got)

	if !got.Success {
		t.Error("one working channel is still a success")
	}
	if got.SuccessCount != 1 {
		t.Errorf("successCount = %d, want 1", got.SuccessCount)
	}
	if got.Platforms["sms"] || got.Platforms["chat"] || !got.Platforms["mail"] {
		t.Errorf("platforms = %v", got.Platforms)
	}
}

func TestAccessDeniedAlert_DefaultsApplied(t *testing.T) {
	env := newTestEnv(t, nil)
	sub := env.hub.Subscribe()
	defer env.hub.Unsubscribe(sub)

	resp := postJSON(t, env.ts.URL+"/api/alerts/access-denied", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got dispatchBody
	decodeBody(t, resp, &got)
	if !got.Success || got.TotalPlatforms != 3 {
		t.Errorf("dispatch = %+v", got)
	}

	// Only the fire category reaches the broadcast channel.
	select {
	case <-sub.C:
		t.Fatal("access-denied alert must not trigger the fire alarm")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmergencyAlert_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing alertType", `{"message":"gas leak"}`, http.StatusBadRequest},
		{"missing message", `{"alertType":"GAS LEAK"}`, http.StatusBadRequest},
		{"blank alertType", `{"alertType":"  ","message":"gas leak"}`, http.StatusBadRequest},
		{"valid", `{"alertType":"GAS LEAK","message":"evacuate","location":"Boiler Room"}`, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/api/alerts/emergency", tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

// ── GET /api/access-logs ─────────────────────────────────────────────────────

func TestAccessLogs_ReturnsRows(t *testing.T) {
	env := newTestEnv(t, nil)
	ident := env.directory.Add(sampleIdentity())

	id := ident.ID
	for i := 0; i < 3; i++ {
		err := env.accessLog.Append(context.Background(), store.AccessAttempt{
			IdentityID:   &id,
			NameSnapshot: ident.Name,
			Method:       types.MethodCard,
			Outcome:      types.OutcomeSuccess,
			OccurredAt:   time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	resp, err := http.Get(env.ts.URL + "/api/access-logs?limit=2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []store.AccessAttemptView
	decodeBody(t, resp, &got)

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Department != "Production" {
		t.Errorf("department = %q, want Production", got[0].Department)
	}
}

func TestAccessLogs_EmptyLogIsEmptyArray(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.ts.URL + "/api/access-logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var got []store.AccessAttemptView
	decodeBody(t, resp, &got)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty JSON array, got %v", got)
	}
}

func TestAccessLogs_BadLimit_400(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, limit := range []string{"abc", "0", "-5"} {
		resp, err := http.Get(env.ts.URL + "/api/access-logs?limit=" + limit)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, resp.StatusCode)
		}
	}
}

// ── GET /api/health ──────────────────────────────────────────────────────────

func TestHealth_Healthy(t *testing.T) {
	env := newTestEnv(t, nil)
	env.directory.Add(sampleIdentity())

	resp, err := http.Get(env.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		Status        string `json:"status"`
		Database      string `json:"database"`
		EnrolledCount int    `json:"enrolledCount"`
	}
	decodeBody(t, resp, &got)

	if got.Status != "healthy" || got.Database != "connected" {
		t.Errorf("health = %+v", got)
	}
	if got.EnrolledCount != 1 {
		t.Errorf("enrolledCount = %d, want 1", got.EnrolledCount)
	}
}

func TestHealth_StoreDown_503(t *testing.T) {
	env := newTestEnv(t, failingDirectory{})

	resp, err := http.Get(env.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}

	var got struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	decodeBody(t, resp, &got)
	if got.Status != "unhealthy" || got.Database != "disconnected" {
		t.Errorf("health = %+v", got)
	}
}
