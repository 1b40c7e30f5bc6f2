package httpapi

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkovs/cookiegate/internal/dbx"
	"github.com/avolkovs/cookiegate/internal/logging"
	"github.com/avolkovs/cookiegate/internal/server/credential"
	"github.com/avolkovs/cookiegate/internal/server/models"
	usersrepo "github.com/avolkovs/cookiegate/internal/server/repositories/users"
	"github.com/avolkovs/cookiegate/internal/server/services"
	"github.com/avolkovs/cookiegate/internal/server/session"
)

const testSecret = "test-secret"

type fakeRepoManager struct {
	repo usersrepo.Repository
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.repo }

func seedUser(t *testing.T, repo usersrepo.Repository, username, password, role string) {
	t.Helper()
	salt, err := credential.NewSalt()
	require.NoError(t, err)
	digest, err := credential.Hash(password, salt)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), &models.User{
		Username:     username,
		Role:         role,
		Salt:         salt,
		PasswordHash: digest,
	})
	require.NoError(t, err)
}

// newTestServer seeds bob/s3cret (User) and alice/adminpw (Admin).
func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := usersrepo.NewInMemoryRepository()
	seedUser(t, repo, "bob", "s3cret", "User")
	seedUser(t, repo, "alice", "adminpw", "Admin")

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	issuer := session.NewIssuer([]byte(testSecret))
	policy := session.DefaultPolicy()
	auth := services.NewAuthService(db, &fakeRepoManager{repo: repo}, issuer, policy, logger)

	return NewServer(":0", auth, issuer, policy, logger), mock
}

func doLogin(t *testing.T, srv *Server, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookieName)
	return nil
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doLogin(t, srv, "bob", "s3cret")
	require.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(t, w)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(session.DefaultValidity.Seconds()), cookie.MaxAge)

	claims, err := session.NewIssuer([]byte(testSecret)).Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, "User", claims.Role)
}

func TestLogin_FailuresHaveUniformResponse(t *testing.T) {
	srv, _ := newTestServer(t)

	wrongPassword := doLogin(t, srv, "bob", "wrong")
	unknownUser := doLogin(t, srv, "nobody", "whatever")
	wrongCase := doLogin(t, srv, "BOB", "s3cret")
	emptyInput := doLogin(t, srv, "", "")

	for _, w := range []*httptest.ResponseRecorder{wrongPassword, unknownUser, wrongCase, emptyInput} {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, wrongPassword.Body.String(), wrongCase.Body.String())
	assert.Equal(t, wrongPassword.Body.String(), emptyInput.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(wrongPassword.Body.Bytes(), &resp))
	assert.Equal(t, invalidCredentialsMessage, resp["error"])

	for _, c := range wrongPassword.Result().Cookies() {
		assert.NotEqual(t, SessionCookieName, c.Name, "failed login must not set a session cookie")
	}
}

func TestMe_RequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_ReturnsClaims(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, doLogin(t, srv, "bob", "s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bob", resp["username"])
	assert.Equal(t, "User", resp["role"])
}

func TestMe_RejectsTamperedCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, doLogin(t, srv, "bob", "s3cret"))

	// flip one bit inside the claims payload
	parts := strings.Split(cookie.Value, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	payload[0] ^= 0x01
	parts[1] = base64.RawURLEncoding.EncodeToString(payload)
	cookie.Value = strings.Join(parts, ".")

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_RejectsExpiredSession(t *testing.T) {
	srv, _ := newTestServer(t)

	// well-signed token that expired a minute ago
	expired := session.Policy{AllowRefresh: true, Persistent: true, Validity: -time.Minute}
	token, err := session.NewIssuer([]byte(testSecret)).Issue(models.Identity{Username: "bob", Role: "User"}, expired)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoute_EnforcesRole(t *testing.T) {
	srv, _ := newTestServer(t)

	userCookie := sessionCookie(t, doLogin(t, srv, "bob", "s3cret"))
	adminCookie := sessionCookie(t, doLogin(t, srv, "alice", "adminpw"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users/bob", nil)
	req.AddCookie(userCookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users/bob", nil)
	req.AddCookie(adminCookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bob", resp["username"])
	assert.Equal(t, "User", resp["role"])
	assert.NotContains(t, w.Body.String(), "password_hash")
	assert.NotContains(t, w.Body.String(), "salt")

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users/nobody", nil)
	req.AddCookie(adminCookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users/bob", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, doLogin(t, srv, "bob", "s3cret"))

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 1)
}

func TestPasswordChange(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	cookie := sessionCookie(t, doLogin(t, srv, "bob", "s3cret"))

	body := strings.NewReader(`{"current_password":"s3cret","new_password":"n3w-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/password", body)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, doLogin(t, srv, "bob", "s3cret").Code)
	assert.Equal(t, http.StatusOK, doLogin(t, srv, "bob", "n3w-pass").Code)
}

func TestPasswordChange_RequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	body := strings.NewReader(`{"current_password":"s3cret","new_password":"n3w-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/password", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
