package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/horizon-hrms/horizon-hrms/internal/auth"
	"github.com/horizon-hrms/horizon-hrms/internal/shared"
)

type stubRepo struct {
	users   map[int64]*auth.User
	byEmail map[string]*auth.User
	roles   map[int64][]int64
	chiefOf map[int64][]int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:   make(map[int64]*auth.User),
		byEmail: make(map[string]*auth.User),
		roles:   make(map[int64][]int64),
		chiefOf: make(map[int64][]int64),
	}
}

func (s *stubRepo) addUser(user *auth.User) {
	s.users[user.ID] = user
	s.byEmail[user.Email] = user
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	return s.roles[userID], nil
}

func (s *stubRepo) ChiefModuleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.chiefOf[userID], nil
}

func newService(t *testing.T, repo auth.Repository) *auth.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := auth.NewRedisRevocations(client)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return auth.NewService(repo, tokens, revocations)
}

func hash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestAuthenticateAndResolve(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 200, Email: "claire@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true})
	repo.roles[200] = []int64{5, 9}
	repo.chiefOf[200] = []int64{7}
	service := newService(t, repo)

	user, token, err := service.Authenticate(context.Background(), "claire@hrms.local", "s3cretpass")
	require.NoError(t, err)
	require.Equal(t, int64(200), user.ID)
	require.NotEmpty(t, token)

	actor, resolved, err := service.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, int64(200), actor.ID)
	require.True(t, actor.IsActive)
	require.ElementsMatch(t, []int64{5, 9}, actor.RoleIDs)
	require.Equal(t, []int64{7}, actor.ChiefOfModuleIDs)
	require.Equal(t, user.Email, resolved.Email)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 200, Email: "claire@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true})
	service := newService(t, repo)

	_, _, err := service.Authenticate(context.Background(), "claire@hrms.local", "wrongpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactiveAccount(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 300, Email: "marc@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: false})
	service := newService(t, repo)

	_, _, err := service.Authenticate(context.Background(), "marc@hrms.local", "s3cretpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveCarriesInactiveFlag(t *testing.T) {
	// A token issued before deactivation still resolves; the permission
	// engine is the one that denies.
	repo := newStubRepo()
	user := &auth.User{ID: 300, Email: "marc@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true}
	repo.addUser(user)
	service := newService(t, repo)

	_, token, err := service.Authenticate(context.Background(), "marc@hrms.local", "s3cretpass")
	require.NoError(t, err)

	user.IsActive = false

	actor, _, err := service.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.False(t, actor.IsActive)
}

func TestResolveRejectsGarbageToken(t *testing.T) {
	service := newService(t, newStubRepo())

	_, _, err := service.Resolve(context.Background(), "not-a-token")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, _, err = service.Resolve(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestResolveUnknownSubject(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 200, Email: "claire@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true})
	service := newService(t, repo)

	_, token, err := service.Authenticate(context.Background(), "claire@hrms.local", "s3cretpass")
	require.NoError(t, err)

	delete(repo.users, int64(200))

	_, _, err = service.Resolve(context.Background(), token)
	require.ErrorIs(t, err, auth.ErrActorNotFound)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 200, Email: "claire@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true})
	service := newService(t, repo)

	_, token, err := service.Authenticate(context.Background(), "claire@hrms.local", "s3cretpass")
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), token))

	_, _, err = service.Resolve(context.Background(), token)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestExpiredTokenRejected(t *testing.T) {
	repo := newStubRepo()
	repo.addUser(&auth.User{ID: 200, Email: "claire@hrms.local", PasswordHash: hash(t, "s3cretpass"), IsActive: true})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := auth.NewTokenManager("test-secret", -time.Minute)
	service := auth.NewService(repo, tokens, auth.NewRedisRevocations(client))

	_, token, err := service.Authenticate(context.Background(), "claire@hrms.local", "s3cretpass")
	require.NoError(t, err)

	_, _, err = service.Resolve(context.Background(), token)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}
