package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/marketdata"
	"portfoliolab/internal/store"
	"portfoliolab/internal/utils"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	logger := utils.NewAppLogger()
	config := &utils.Config{
		Server: utils.ServerConfig{Port: "5000"},
		Session: utils.SessionConfig{
			Secret: "test-secret",
			Name:   "portfoliolab_session",
			MaxAge: 3600,
		},
	}
	engine := analytics.NewEngine(marketdata.NewProvider(st), logger)
	return NewServer(logger, config, st, engine), mock
}

func hashFor(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// expectLogin primes the user lookup and performs a login, returning the
// session cookies for follow-up requests.
func expectLogin(t *testing.T, server *Server, mock sqlmock.Sqlmock) []*http.Cookie {
	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", hashFor(t, "secret")))

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

// expectSessionUser primes the user lookup performed when a handler resolves
// the session cookie.
func expectSessionUser(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", "hash"))
}

func TestRegister(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", "hash"))

	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"username":"alice","password":"secret"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, rr.Body.String())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"username":"alice","password":"secret"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"username":"alice"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginReturnsServerIdentity(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", hashFor(t, "secret")))

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Login successful","username":"alice"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Result().Cookies())
}

func TestLoginWrongPassword(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(1, "alice", hashFor(t, "secret")))

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"Login failed"}`, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies())
}

func TestLoginUnknownUser(t *testing.T) {
	server, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, username, password_hash FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}))

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"ghost","password":"secret"}`))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCurrentUserWithSession(t *testing.T) {
	server, mock := newTestServer(t)
	cookies := expectLogin(t, server, mock)

	expectSessionUser(mock)
	req := httptest.NewRequest("GET", "/current_user", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"username":"alice"}`, rr.Body.String())
}

func TestCurrentUserWithoutSession(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/current_user", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"No user logged in"}`, rr.Body.String())
}

func TestLogoutClearsSession(t *testing.T) {
	server, mock := newTestServer(t)
	cookies := expectLogin(t, server, mock)

	expectSessionUser(mock)
	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, rr.Body.String())

	// The replacement cookie must be expired.
	result := rr.Result().Cookies()
	require.NotEmpty(t, result)
	assert.Negative(t, result[0].MaxAge)
}
