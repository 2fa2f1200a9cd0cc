package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ai-diet-planner/internal/app"
	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/database"
	"ai-diet-planner/internal/llm"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/session"
	"ai-diet-planner/internal/shared"
)

const planJSON = "```json\n" + `{
  "planName": "Steady Energy",
  "overview": "Two meals.",
  "dailyTotals": {"calories": 1200, "protein": 150, "carbs": 200, "fat": 70},
  "meals": [
    {"name": "Lunch", "time": "12:00", "foods": [{"item": "Rice", "portion": "100 g", "calories": 500}], "mealTotals": {"calories": 500}},
    {"name": "Dinner", "time": "19:00", "foods": [{"item": "Fish", "portion": "200 g", "calories": 700}], "mealTotals": {"calories": 700}}
  ],
  "tips": ["Hydrate"]
}` + "\n```"

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	lastKey  string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, apiKey, prompt string) (llm.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastKey = apiKey
	if f.err != nil {
		return llm.ContentResponse{}, f.err
	}
	return llm.ContentResponse{Content: f.response, Usage: shared.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}}, nil
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGenerator) LastKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastKey
}

func (f *fakeGenerator) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type testEnv struct {
	srv    *Server
	app    *app.App
	gen    *fakeGenerator
	ts     *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{DatabasePath: filepath.Join(t.TempDir(), "web.db"), GeminiModel: "test"}
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	gen := &fakeGenerator{response: planJSON}
	a := app.New(cfg, db, gen)
	t.Cleanup(func() { a.Close() })

	srv := NewServer(a, session.NewManager(), session.NewCookies("test-secret", time.Hour, false))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &testEnv{srv: srv, app: a, gen: gen, ts: ts, client: &http.Client{Jar: jar}}
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *goquery.Document {
	t.Helper()
	resp, err := e.client.PostForm(e.ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return parsePage(t, resp)
}

func (e *testEnv) page(t *testing.T) *goquery.Document {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	return parsePage(t, resp)
}

// state returns the session state behind the test client's cookie.
func (e *testEnv) state(t *testing.T) *session.State {
	t.Helper()
	u, _ := url.Parse(e.ts.URL)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range e.client.Jar.Cookies(u) {
		r.AddCookie(c)
	}
	id, err := e.srv.cookies.ClientID(r)
	if err != nil {
		t.Fatalf("No client cookie: %v", err)
	}
	st, ok := e.srv.sessions.Lookup(id)
	if !ok {
		t.Fatal("No state for client")
	}
	return st
}

func parsePage(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func profileForm() url.Values {
	return url.Values{
		"age":               {"34"},
		"gender":            {"female"},
		"weight":            {"64.5"},
		"height":            {"170"},
		"activityLevel":     {"moderate"},
		"goal":              {"maintain"},
		"dietaryPreference": {"vegetarian"},
		"mealsPerDay":       {"2"},
		"cookingSkill":      {"beginner"},
		"allergies":         {""},
	}
}

func toast(doc *goquery.Document, level string) string {
	return strings.TrimSpace(doc.Find(".toast." + level).First().Text())
}

func TestSubmitFlow(t *testing.T) {
	env := newTestEnv(t)

	doc := env.post(t, "/api-key", url.Values{"apiKey": {"  AIza-key  "}})
	if got := toast(doc, "success"); got != msgKeySaved {
		t.Errorf("Expected key saved toast, got '%s'", got)
	}

	doc = env.post(t, "/plan", profileForm())
	if got := toast(doc, "success"); got != msgPlanGenerated {
		t.Errorf("Expected success toast, got '%s'", got)
	}
	if got := doc.Find("#planName").Text(); got != "Steady Energy" {
		t.Errorf("Expected plan name, got '%s'", got)
	}
	if n := doc.Find("#dailyView .meal-table").Length(); n != 2 {
		t.Errorf("Expected 2 meals, got %d", n)
	}
	if env.gen.Calls() != 1 || env.gen.LastKey() != "AIza-key" {
		t.Errorf("Expected one call with the trimmed key, got %d '%s'", env.gen.Calls(), env.gen.LastKey())
	}
	if v, _ := doc.Find("#age").Attr("value"); v != "34" {
		t.Errorf("Expected form values to be kept, got '%s'", v)
	}
	if _, disabled := doc.Find("#generateBtn").Attr("disabled"); disabled {
		t.Error("Expected submit to be enabled after completion")
	}

	// Toasts are shown once.
	if doc := env.page(t); doc.Find(".toast").Length() != 0 {
		t.Error("Expected toasts to be consumed")
	}
}

func TestSubmit_Rejected(t *testing.T) {
	t.Run("MissingKey", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.post(t, "/plan", profileForm())

		if got := toast(doc, "error"); got != shared.ErrMissingCredential.Message() {
			t.Errorf("Expected missing key toast, got '%s'", got)
		}
		if env.gen.Calls() != 0 {
			t.Errorf("Expected no upstream call, got %d", env.gen.Calls())
		}
	})

	t.Run("EmptyKeySave", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.post(t, "/api-key", url.Values{"apiKey": {"   "}})
		if got := toast(doc, "error"); got != msgKeyEmpty {
			t.Errorf("Expected empty key toast, got '%s'", got)
		}
	})

	t.Run("Incomplete", func(t *testing.T) {
		env := newTestEnv(t)
		env.post(t, "/api-key", url.Values{"apiKey": {"k"}})

		form := profileForm()
		form.Del("goal")
		doc := env.post(t, "/plan", form)

		if got := toast(doc, "error"); got != shared.ErrValidationIncomplete.Message() {
			t.Errorf("Expected validation toast, got '%s'", got)
		}
		if env.gen.Calls() != 0 {
			t.Errorf("Expected no upstream call, got %d", env.gen.Calls())
		}
	})

	t.Run("Busy", func(t *testing.T) {
		env := newTestEnv(t)
		env.post(t, "/api-key", url.Values{"apiKey": {"k"}})

		st := env.state(t)
		if err := st.BeginRequest(); err != nil {
			t.Fatal(err)
		}
		doc := env.post(t, "/plan", profileForm())
		st.EndRequest()

		if got := toast(doc, "error"); got != msgBusy {
			t.Errorf("Expected busy toast, got '%s'", got)
		}
		if env.gen.Calls() != 0 {
			t.Errorf("Expected no upstream call while busy, got %d", env.gen.Calls())
		}
	})
}

func TestSubmit_ErrorKeepsPreviousPlan(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api-key", url.Values{"apiKey": {"k"}})
	env.post(t, "/plan", profileForm())

	env.gen.SetErr(&llm.StatusError{StatusCode: http.StatusTooManyRequests})
	doc := env.post(t, "/plan", profileForm())

	if got := toast(doc, "error"); got != shared.ErrRateLimited.Message() {
		t.Errorf("Expected rate limit toast, got '%s'", got)
	}
	if got := doc.Find("#planName").Text(); got != "Steady Energy" {
		t.Errorf("Expected previous plan to stay, got '%s'", got)
	}
	if env.state(t).Busy() {
		t.Error("Expected busy flag cleared after failure")
	}
}

func TestThemeToggle_NoUpstreamCall(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api-key", url.Values{"apiKey": {"k"}})
	before := env.post(t, "/plan", profileForm()).Find("#chartData").Text()

	doc := env.post(t, "/theme", nil)
	if theme, _ := doc.Find("html").Attr("data-theme"); theme != "light" {
		t.Errorf("Expected light theme, got '%s'", theme)
	}
	var light render.ChartSet
	if err := json.Unmarshal([]byte(doc.Find("#chartData").Text()), &light); err != nil {
		t.Fatal(err)
	}
	if light.Meals.Style.TextColor != "#1a1d27" {
		t.Errorf("Expected light chart colors, got %+v", light.Meals.Style)
	}

	doc = env.post(t, "/theme", nil)
	after := doc.Find("#chartData").Text()

	if before != after {
		t.Errorf("Expected charts to be unchanged after toggling twice.\nbefore: %s\nafter:  %s", before, after)
	}
	if got := doc.Find("#totalCalories").Text(); got != "1200" {
		t.Errorf("Expected totals unchanged, got '%s'", got)
	}
	if env.gen.Calls() != 1 {
		t.Errorf("Expected no upstream call on theme change, got %d", env.gen.Calls())
	}

	st := env.state(t)
	if st.Canvas().Live() != 2 || st.Canvas().Releases() != 4 {
		t.Errorf("Expected each redraw to release the previous charts, live=%d released=%d",
			st.Canvas().Live(), st.Canvas().Releases())
	}

	theme, err := env.app.Prefs().Theme(context.Background(), st.ClientID())
	if err != nil || theme != render.ThemeDark {
		t.Errorf("Expected persisted dark theme, got %s (%v)", theme, err)
	}
}

func TestViewSwitch(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, "/api-key", url.Values{"apiKey": {"k"}})
	env.post(t, "/plan", profileForm())

	doc := env.post(t, "/view/cards", nil)
	if !doc.Find("#cardsView").HasClass("active") || doc.Find("#dailyView").HasClass("active") {
		t.Error("Expected cards view to be active")
	}
	if env.gen.Calls() != 1 {
		t.Errorf("Expected no upstream call on view switch, got %d", env.gen.Calls())
	}

	resp, err := env.client.PostForm(env.ts.URL+"/view/monthly", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown view, got %d", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.Get(env.ts.URL + "/export")
	if err != nil {
		t.Fatal(err)
	}
	doc := parsePage(t, resp)
	if got := toast(doc, "error"); got != msgNoPlan {
		t.Errorf("Expected no plan toast, got '%s'", got)
	}

	env.post(t, "/api-key", url.Values{"apiKey": {"k"}})
	env.post(t, "/plan", profileForm())

	resp, err = env.client.Get(env.ts.URL + "/export")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected content type %s", ct)
	}
	if !strings.HasPrefix(string(body), "PK") {
		t.Error("Expected a zip container")
	}
	if env.state(t).ChromeHidden() {
		t.Error("Expected chrome to be restored after export")
	}

	doc = env.page(t)
	if got := toast(doc, "success"); got != msgExported {
		t.Errorf("Expected export toast, got '%s'", got)
	}
	if doc.Find(".download-section").HasClass("hidden") {
		t.Error("Expected download section visible")
	}
}

func postJSON(t *testing.T, env *testEnv, body string, header http.Header) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/api/plans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Expected JSON body: %v", err)
	}
	return resp, out
}

const profileJSON = `{"age": 40, "gender": "male", "weight": 80, "height": 180, "activityLevel": "active",
	"goal": "gain_muscle", "dietaryPreference": "none", "mealsPerDay": 2, "cookingSkill": "advanced"}`

func TestAPI_CreatePlan(t *testing.T) {
	env := newTestEnv(t)

	resp, out := postJSON(t, env, profileJSON, http.Header{apiKeyHeader: {"header-key"}})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %v", resp.StatusCode, out)
	}
	if env.gen.LastKey() != "header-key" {
		t.Errorf("Expected header key, got '%s'", env.gen.LastKey())
	}

	plan := out["plan"].(map[string]any)
	if plan["planName"] != "Steady Energy" {
		t.Errorf("Unexpected plan %v", plan)
	}
	views := out["views"].(map[string]any)
	if days := views["weekly"].(map[string]any)["days"].([]any); len(days) != 7 {
		t.Errorf("Expected 7 days, got %d", len(days))
	}
	macro := out["charts"].(map[string]any)["macro"].(map[string]any)
	if series := macro["series"].([]any); series[0].(float64) != 600 || series[2].(float64) != 630 {
		t.Errorf("Unexpected macro series %v", series)
	}

	resp, err := env.client.Get(env.ts.URL + "/api/plans/current")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected current plan, got %d", resp.StatusCode)
	}
}

func TestAPI_Errors(t *testing.T) {
	t.Run("NoCurrentPlan", func(t *testing.T) {
		env := newTestEnv(t)
		resp, err := env.client.Get(env.ts.URL + "/api/plans/current")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		env := newTestEnv(t)
		resp, out := postJSON(t, env, `{"age": 40}`, http.Header{apiKeyHeader: {"k"}})
		if resp.StatusCode != http.StatusBadRequest || out["error"] != "ValidationIncomplete" {
			t.Errorf("Expected validation error, got %d %v", resp.StatusCode, out)
		}
		if missing := out["missing"].([]any); len(missing) != 8 {
			t.Errorf("Expected 8 missing fields, got %v", missing)
		}
	})

	t.Run("StoredKeyFallback", func(t *testing.T) {
		env := newTestEnv(t)
		resp, out := postJSON(t, env, profileJSON, nil)
		if resp.StatusCode != http.StatusUnauthorized || out["error"] != "MissingCredential" {
			t.Errorf("Expected missing credential, got %d %v", resp.StatusCode, out)
		}

		env.post(t, "/api-key", url.Values{"apiKey": {"stored"}})
		resp, _ = postJSON(t, env, profileJSON, nil)
		if resp.StatusCode != http.StatusCreated || env.gen.LastKey() != "stored" {
			t.Errorf("Expected stored key to be used, got %d '%s'", resp.StatusCode, env.gen.LastKey())
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		env := newTestEnv(t)
		env.gen.SetErr(&llm.StatusError{StatusCode: http.StatusForbidden})
		resp, out := postJSON(t, env, profileJSON, http.Header{apiKeyHeader: {"bad"}})
		if resp.StatusCode != http.StatusUnauthorized || out["message"] != shared.ErrInvalidCredential.Message() {
			t.Errorf("Expected invalid credential, got %d %v", resp.StatusCode, out)
		}
	})

	t.Run("Busy", func(t *testing.T) {
		env := newTestEnv(t)
		env.page(t)
		st := env.state(t)
		if err := st.BeginRequest(); err != nil {
			t.Fatal(err)
		}
		defer st.EndRequest()

		resp, _ := postJSON(t, env, profileJSON, http.Header{apiKeyHeader: {"k"}})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected 409, got %d", resp.StatusCode)
		}
		if env.gen.Calls() != 0 {
			t.Errorf("Expected no upstream call, got %d", env.gen.Calls())
		}
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || out["status"] != "ok" {
		t.Errorf("Unexpected health response %d %v", resp.StatusCode, out)
	}
}

func TestUserMessage(t *testing.T) {
	if got := userMessage(errors.New("boom")); !strings.Contains(got, "try again") {
		t.Errorf("Expected generic message, got '%s'", got)
	}
	if got := userMessage(&shared.Error{Kind: shared.KindUpstream, Status: 503}); !strings.Contains(got, "503") {
		t.Errorf("Expected status in message, got '%s'", got)
	}
}
