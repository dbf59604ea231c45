package httpapi

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/logging"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/config"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/repomanager"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/services"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}

	cfg := &config.Config{
		EndpointAddrHTTP: ":0",
		SessionTTL:       time.Hour,
		BcryptCost:       bcrypt.MinCost,
		AllowedOrigin:    "http://localhost:3000",
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	m := repomanager.NewPostgresRepositoryManager()
	ss := services.NewSessionService(db, m, cfg)
	us := services.NewUserService(db, m, ss, cfg)
	ps := services.NewProfileService(db, m)
	ms := services.NewMediaService(cfg)

	return NewServer(cfg, logger, us, ss, ps, ms), mock, db
}

// expectAuthChain queues the queries the authenticate middleware runs for a
// valid session belonging to userID.
func expectAuthChain(mock sqlmock.Sqlmock, sessionID, userID string) {
	mock.ExpectQuery(`(?s)SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+sessions\b`).
		WithArgs(sessionID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*expires_at\s+FROM\s+sessions\b`).
		WithArgs(sessionID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at"}).
			AddRow(sessionID, userID, time.Now().Add(30*time.Minute)))

	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "image_url", "created_at"}).
			AddRow(userID, "alice", "hash", "img", time.Now()))

	mock.ExpectQuery(`(?s)SELECT\s+profile_id,\s*relation\s+FROM\s+user_profiles\b`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "relation"}))

	mock.ExpectExec(`(?s)UPDATE\s+sessions\s+SET\s+expires_at\s*=\s*GREATEST\b`).
		WithArgs(sqlmock.AnyArg(), sessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func sessionCookie(id string) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: id}
}

func TestHealth(t *testing.T) {
	s, _, db := newTestServer(t)
	defer db.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "StatsAdmit" {
		t.Fatalf("health: %d %q", w.Code, w.Body.String())
	}
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad input", common.ErrValidation), http.StatusBadRequest},
		{common.ErrAuthentication, http.StatusUnauthorized},
		{fmt.Errorf("%w: gone", common.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: db down", common.ErrStorage), http.StatusInternalServerError},
		{common.ErrInternal, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFromError(tc.err); got != tc.want {
			t.Errorf("statusFromError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestAuthenticate_NoCookie(t *testing.T) {
	s, _, db := newTestServer(t)
	defer db.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/user/logout", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no cookie: %d, want 401", w.Code)
	}
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+sessions\b`).
		WithArgs("stale", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/user/logout", nil)
	req.AddCookie(sessionCookie("stale"))
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired session: %d, want 401", w.Code)
	}
}

func TestSignup_MissingFields(t *testing.T) {
	s, _, db := newTestServer(t)
	defer db.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user", strings.NewReader(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: %d, want 400", w.Code)
	}
}

func TestSignup_Success(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\b`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+users\b.*RETURNING\s+created_at`).
		WithArgs(sqlmock.AnyArg(), "alice", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+sessions\b`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user",
		strings.NewReader(`{"username":"alice","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("signup: %d %s", w.Code, w.Body.String())
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("session cookie not set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "image_url", "created_at"}).
			AddRow("u1", "alice", string(hash), "img", time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/user/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d, want 401", w.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	expectAuthChain(mock, "s1", "u1")
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+sessions\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs("u1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/user/logout", nil)
	req.AddCookie(sessionCookie("s1"))
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", w.Code, w.Body.String())
	}

	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("session cookie not cleared")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestAllPreviews_Anonymous(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	admissions := `[{"school":"MIT","status":"accepted","essays":[{"title":"Why MIT","content":"secret essay"}]}]`
	scores := `[{"test":"SAT","score":"1540"}]`
	rows := sqlmock.NewRows([]string{
		"id", "owner_user_id", "owner_username", "display_name", "price", "purchase_count",
		"published", "current_school", "current_major", "current_description", "image_url",
		"school_admissions", "test_scores", "created_at",
	}).AddRow("p1", "u1", "alice", "Alice", 25, 3,
		true, "MIT", "CS", "senior", "img",
		[]byte(admissions), []byte(scores), time.Now())

	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+profiles\s+WHERE\s+published\b`).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/preview", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("previews: %d %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"MIT"`) || !strings.Contains(body, `"Alice"`) {
		t.Fatalf("preview fields missing: %s", body)
	}
	if strings.Contains(body, "secret essay") || strings.Contains(body, "1540") {
		t.Fatalf("preview leaked paid content: %s", body)
	}
}

func TestGetProfile_NotFoundMapsTo404(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	expectAuthChain(mock, "s1", "u1")
	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/missing", nil)
	req.AddCookie(sessionCookie("s1"))
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("missing profile: %d, want 404", w.Code)
	}
}

func TestUnlock_OwnProfileRejected(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+sessions\b`).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*expires_at\s+FROM\s+sessions\b`).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at"}).
			AddRow("s1", "u1", time.Now().Add(30*time.Minute)))

	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "image_url", "created_at"}).
			AddRow("u1", "alice", "hash", "img", time.Now()))

	// the viewer created p1
	mock.ExpectQuery(`(?s)SELECT\s+profile_id,\s*relation\s+FROM\s+user_profiles\b`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "relation"}).AddRow("p1", "created"))

	mock.ExpectExec(`(?s)UPDATE\s+sessions\s+SET\s+expires_at\s*=\s*GREATEST\b`).
		WithArgs(sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	admissions := `[]`
	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+profiles\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_user_id", "owner_username", "display_name", "price", "purchase_count",
			"published", "current_school", "current_major", "current_description", "image_url",
			"school_admissions", "test_scores", "created_at",
		}).AddRow("p1", "u1", "alice", "Alice", 25, 0,
			true, "MIT", "CS", "senior", "img",
			[]byte(admissions), []byte(admissions), time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/user/unlock/p1", nil)
	req.AddCookie(sessionCookie("s1"))
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unlock own profile: %d, want 400", w.Code)
	}
}

func TestStorageErrorHidesDetails(t *testing.T) {
	s, mock, db := newTestServer(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\b.*FROM\s+profiles\s+WHERE\s+published\b`).
		WillReturnError(errors.New("connection refused to db-host:5432"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/preview", nil)
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("storage failure: %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "db-host") {
		t.Fatalf("response leaked backend details: %s", w.Body.String())
	}
}
