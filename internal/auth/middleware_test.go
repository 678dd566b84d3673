package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/common"
)

func TestRequireAuthPopulatesSession(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleManager, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	var seen common.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := common.SessionFrom(r.Context())
		require.True(t, ok)
		seen = session
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware{Service: svc}.RequireAuth(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, login.User.ID, seen.UserID)
	require.Equal(t, "wanjiku", seen.Username)
	require.Equal(t, RoleManager, seen.Role)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	q := newFakeQuerier()
	svc := newTestService(t, q)
	handler := Middleware{Service: svc}.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthReadsAccessCookie(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	handler := Middleware{Service: svc, AccessCookie: "access_token"}.RequireAuth(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: login.AccessToken})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
