package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/pretest/internal/config"
	"github.com/ehr/pretest/internal/domain/enrollment"
	"github.com/ehr/pretest/internal/domain/survey"
	"github.com/ehr/pretest/internal/platform/auth"
	"github.com/ehr/pretest/internal/platform/telemetry"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:             "0",
		Env:              "development",
		LogLevel:         "info",
		DatabaseURL:      "sqlite://" + filepath.Join(t.TempDir(), "intake.db"),
		CORSOrigins:      []string{"http://localhost:5173"},
		RateLimitRPS:     100,
		RateLimitBurst:   100,
		RequestTimeout:   5 * time.Second,
		BodyLimit:        "64K",
		ClaimMaxAttempts: 5,
		WriteTimeout:     5 * time.Second,
	}
}

func testServer(t *testing.T, cfg *config.Config, slots ...string) (*echo.Echo, *telemetry.Registry) {
	t.Helper()
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.close)

	var batch []enrollment.Slot
	for _, n := range slots {
		batch = append(batch, enrollment.Slot{ParticipantNumber: n, ParticipantPassword: "pw-" + n})
	}
	if len(batch) > 0 {
		if _, err := st.slots.Import(context.Background(), batch); err != nil {
			t.Fatalf("import slots: %v", err)
		}
	}

	metrics := telemetry.NewRegistry()
	return newServer(cfg, zerolog.Nop(), st, metrics), metrics
}

func answersBody(t *testing.T) string {
	t.Helper()
	a := survey.Answers{
		IsRegisteredNurse: true, ProvidesConsent: true, UnderstandsVoluntary: true,
		AgeGroup: "20-30 years", Gender: "Female", MaritalStatus: "Married",
		EducationalQualification: "Graduate", Designation: "Staff Nurse",
		IncomeLevel: "Rs.20,001-Rs.30,000", YearsExperience: "Less than 5 years",
		WorkingUnit: "Any other", WorkingUnitOther: "Dialysis",
		WorkShift: "Rotating", HoursPerDay: "8 hours",
		NightShiftsPerMonth: "Monthly Once", PlaceOfResidence: "PG Hostel", NonSharingPledge: true,
		WHO5Cheerful: "3", WHO5Calm: "3", WHO5Active: "3", WHO5Rested: "3", WHO5Interested: "3",
		PSS4UnableControl: "2", PSS4ConfidentHandle: "2", PSS4GoingYourWay: "2", PSS4DifficultiesPiling: "2",
		CopeConcentratingEfforts: "2", CopeTakingAction: "2", CopeStrategy: "2", CopeThinkingSteps: "2",
		CopeDifferentLight: "2", CopeLookingGood: "2", CopeAcceptingReality: "2", CopeLearningLive: "2",
		CopeEmotionalSupport: "2", CopeComfortUnderstanding: "2", CopeWorkActivities: "2", CopeMoviesTVReading: "2",
		CopeCriticizingMyself: "2", CopeBlamingMyself: "2",
		BurnoutLevel: "no_burnout",
	}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func serve(e *echo.Echo, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_Routes(t *testing.T) {
	e, _ := testServer(t, testConfig(t))

	want := map[string]bool{
		"GET /health":                                             false,
		"GET /health/db":                                          false,
		"GET /metrics":                                            false,
		"GET /api/v1/pretest/form":                                false,
		"POST /api/v1/pretest/submissions":                        false,
		"GET /api/v1/admin/slots/stats":                           false,
		"GET /api/v1/admin/responses":                             false,
		"GET /api/v1/admin/participants/:participant/demographics": false,
	}
	for _, r := range e.Routes() {
		k := r.Method + " " + r.Path
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, found := range want {
		if !found {
			t.Errorf("route %s not registered", k)
		}
	}
}

func TestServer_SubmitThenRead(t *testing.T) {
	e, metrics := testServer(t, testConfig(t), "P-001")

	rec := serve(e, http.MethodPost, "/api/v1/pretest/submissions", answersBody(t), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID on response")
	}
	if rec.Header().Get("X-Record-Status") != "ok" {
		t.Errorf("expected record status ok, got %q", rec.Header().Get("X-Record-Status"))
	}
	var view struct {
		ParticipantNumber string `json:"participant_number"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ParticipantNumber != "P-001" {
		t.Errorf("expected P-001, got %q", view.ParticipantNumber)
	}

	rec = serve(e, http.MethodPost, "/api/v1/pretest/submissions", answersBody(t), nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once the pool is empty, got %d", rec.Code)
	}

	rec = serve(e, http.MethodGet, "/api/v1/admin/responses", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected 1 stored response, got %d", page.Total)
	}

	rec = serve(e, http.MethodGet, "/api/v1/admin/participants/P-001/demographics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dialysis") {
		t.Errorf("expected working unit override in demographics, got %s", rec.Body.String())
	}

	if got := metrics.Get(telemetry.ClaimsTotal, telemetry.L("outcome", "claimed")); got != 1 {
		t.Errorf("expected 1 claimed, got %d", got)
	}
	rec = serve(e, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rec.Body.String(), telemetry.ClaimsTotal) {
		t.Errorf("expected claims counter in /metrics output")
	}
}

func TestServer_InvalidSubmissionKeepsSlot(t *testing.T) {
	e, _ := testServer(t, testConfig(t), "P-001")

	rec := serve(e, http.MethodPost, "/api/v1/pretest/submissions", `{"isRegisteredNurse":true}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = serve(e, http.MethodGet, "/api/v1/admin/slots/stats", "", nil)
	var st enrollment.PoolStats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Unused != 1 {
		t.Errorf("invalid submission must not consume a slot, stats %+v", st)
	}
}

func TestServer_HealthAndForm(t *testing.T) {
	e, _ := testServer(t, testConfig(t))

	if rec := serve(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/health: expected 200, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/health/db", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/health/db: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := serve(e, http.MethodGet, "/api/v1/pretest/form", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("form: expected 200, got %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag on form")
	}
	rec = serve(e, http.MethodGet, "/api/v1/pretest/form", "", http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("expected 304 for matching ETag, got %d", rec.Code)
	}
}

func signedToken(t *testing.T, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServer_StaticAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "staging"
	cfg.AuthSigningKey = testSigningKey
	e, _ := testServer(t, cfg, "P-001")

	if rec := serve(e, http.MethodGet, "/api/v1/admin/slots/stats", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	nurse := http.Header{"Authorization": {"Bearer " + signedToken(t, "nurse")}}
	if rec := serve(e, http.MethodGet, "/api/v1/admin/slots/stats", "", nurse); rec.Code != http.StatusForbidden {
		t.Errorf("wrong role: expected 403, got %d", rec.Code)
	}

	researcher := http.Header{"Authorization": {"Bearer " + signedToken(t, auth.RoleResearcher)}}
	if rec := serve(e, http.MethodGet, "/api/v1/admin/slots/stats", "", researcher); rec.Code != http.StatusOK {
		t.Errorf("researcher: expected 200, got %d", rec.Code)
	}

	if rec := serve(e, http.MethodGet, "/api/v1/pretest/form", "", nil); rec.Code != http.StatusOK {
		t.Errorf("public form must not require a token, got %d", rec.Code)
	}
}

func TestStaffAuthModes(t *testing.T) {
	cfg := testConfig(t)
	if cfg.AuthMode() != "development" {
		t.Fatalf("expected development mode, got %q", cfg.AuthMode())
	}
	if staffAuth(cfg) == nil {
		t.Fatal("expected middleware")
	}
}

func TestMigrationsFS_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS(""), ".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name() == "001_intake.sql" {
			found = true
		}
	}
	if !found {
		t.Error("expected 001_intake.sql in embedded migrations")
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %v", got)
	}
	cfg.LogLevel = "nonsense"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
}

func TestWarnDevAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	cfg := testConfig(t)
	if !warnDevAuth(logger, cfg) {
		t.Fatal("expected a warning in development auth mode")
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "unauthenticated") {
		t.Errorf("unexpected log output: %s", buf.String())
	}

	buf.Reset()
	cfg.AuthSigningKey = testSigningKey
	if warnDevAuth(logger, cfg) {
		t.Error("static auth must not warn")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}
