package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	users    map[string]UserRow // keyed by username
	sessions map[string]fakeSession
}

type fakeSession struct {
	id        pgtype.UUID
	userID    pgtype.UUID
	expiresAt pgtype.Timestamptz
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		users:    map[string]UserRow{},
		sessions: map[string]fakeSession{},
	}
}

func (f *fakeQuerier) addUser(t *testing.T, username, role, password string) UserRow {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	var id pgtype.UUID
	require.NoError(t, id.Scan(uuid.NewString()))
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	row := UserRow{
		ID:           id,
		Username:     username,
		Name:         username,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[username] = row
	return row
}

func (f *fakeQuerier) GetUserByUsername(_ context.Context, username string) (UserRow, error) {
	row, ok := f.users[username]
	if !ok {
		return UserRow{}, errors.New("no rows")
	}
	return row, nil
}

func (f *fakeQuerier) GetUserByID(_ context.Context, id pgtype.UUID) (UserRow, error) {
	for _, row := range f.users {
		if row.ID == id {
			return row, nil
		}
	}
	return UserRow{}, errors.New("no rows")
}

func (f *fakeQuerier) CreateSession(_ context.Context, arg CreateSessionParams) error {
	var id pgtype.UUID
	if err := id.Scan(uuid.NewString()); err != nil {
		return err
	}
	f.sessions[arg.RefreshToken] = fakeSession{id: id, userID: arg.UserID, expiresAt: arg.ExpiresAt}
	return nil
}

func (f *fakeQuerier) GetSessionByToken(_ context.Context, refreshToken string) (SessionRow, error) {
	s, ok := f.sessions[refreshToken]
	if !ok {
		return SessionRow{}, errors.New("no rows")
	}
	return SessionRow{ID: s.id, UserID: s.userID, ExpiresAt: s.expiresAt}, nil
}

func (f *fakeQuerier) RotateSessionToken(_ context.Context, arg RotateSessionParams) error {
	for token, s := range f.sessions {
		if s.id == arg.ID {
			delete(f.sessions, token)
			f.sessions[arg.RefreshToken] = fakeSession{id: s.id, userID: s.userID, expiresAt: arg.ExpiresAt}
			return nil
		}
	}
	return errors.New("no rows")
}

func (f *fakeQuerier) DeleteSessionByToken(_ context.Context, refreshToken string) error {
	delete(f.sessions, refreshToken)
	return nil
}

func (f *fakeQuerier) DeleteSessionsByUser(_ context.Context, userID pgtype.UUID) error {
	for token, s := range f.sessions {
		if s.userID == userID {
			delete(f.sessions, token)
		}
	}
	return nil
}

func newTestService(t *testing.T, q Querier) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Queries:         q,
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesTokensWithRoleClaims(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleManager, "correct horse")
	svc := newTestService(t, q)

	result, err := svc.Login(context.Background(), "wanjiku", "correct horse", "go-test", "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "wanjiku", result.User.Username)
	require.Equal(t, RoleManager, result.User.Role)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Len(t, q.sessions, 1)

	claims, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.UserID)
	require.Equal(t, "wanjiku", claims.Username)
	require.Equal(t, RoleManager, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "otieno", RoleCashier, "right password")
	svc := newTestService(t, q)

	_, err := svc.Login(context.Background(), "otieno", "wrong password", "", "")
	require.Error(t, err)

	_, err = svc.Login(context.Background(), "nobody", "whatever", "", "")
	require.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the old token is gone after rotation
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)

	_, err = svc.Refresh(context.Background(), refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsExpiredSession(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(48 * time.Hour) })
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	require.Error(t, err)
	require.Empty(t, q.sessions)
}

func TestLogoutRevokesSession(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.Empty(t, q.sessions)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	tampered := login.AccessToken[:len(login.AccessToken)-2] + "xx"
	_, err = svc.ParseAccessToken(tampered)
	require.Error(t, err)

	_, err = svc.ParseAccessToken("")
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	q := newFakeQuerier()
	q.addUser(t, "wanjiku", RoleAdmin, "pw12345678")
	svc := newTestService(t, q)

	login, err := svc.Login(context.Background(), "wanjiku", "pw12345678", "", "")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(time.Hour) })
	_, err = svc.ParseAccessToken(login.AccessToken)
	require.Error(t, err)
}
