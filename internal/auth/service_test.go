package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
)

type memOperators struct {
	byUsername map[string]Operator
	byID       map[uuid.UUID]Operator
}

func (m *memOperators) GetByUsername(_ context.Context, username string) (Operator, error) {
	op, ok := m.byUsername[username]
	if !ok {
		return Operator{}, ErrOperatorNotFound
	}
	return op, nil
}

func (m *memOperators) GetByID(_ context.Context, id uuid.UUID) (Operator, error) {
	op, ok := m.byID[id]
	if !ok {
		return Operator{}, ErrOperatorNotFound
	}
	return op, nil
}

func (m *memOperators) Create(_ context.Context, username, displayName, passwordHash, role string) (Operator, error) {
	op := Operator{
		ID:           uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		Role:         role,
		Active:       true,
		passwordHash: passwordHash,
	}
	if m.byUsername == nil {
		m.byUsername = map[string]Operator{}
		m.byID = map[uuid.UUID]Operator{}
	}
	m.byUsername[username] = op
	m.byID[op.ID] = op
	return op, nil
}

func newTestService(t *testing.T) (*Service, *memOperators) {
	t.Helper()
	store := &memOperators{}
	svc, err := NewService(Config{Store: store, Secret: "test-secret-please-rotate"})
	require.NoError(t, err)
	return svc, store
}

func seedOperator(t *testing.T, store *memOperators, username, password, role string, active bool) Operator {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	op, err := store.Create(context.Background(), username, username, hash, role)
	require.NoError(t, err)
	op.Active = active
	store.byUsername[username] = op
	store.byID[op.ID] = op
	return op
}

func TestLoginAndParseToken(t *testing.T) {
	svc, store := newTestService(t)
	op := seedOperator(t, store, "dewi", "correct horse", RoleCashier, true)

	result, err := svc.Login(context.Background(), "dewi", "correct horse")
	require.NoError(t, err)
	require.Equal(t, op.ID, result.Operator.ID)
	require.NotEmpty(t, result.AccessToken)

	identity, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, op.ID.String(), identity.OperatorID)
	require.Equal(t, RoleCashier, identity.Role)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	svc, store := newTestService(t)
	seedOperator(t, store, "dewi", "correct horse", RoleCashier, true)
	seedOperator(t, store, "parked", "correct horse", RoleCashier, false)

	cases := []struct {
		name               string
		username, password string
	}{
		{"unknown user", "nobody", "whatever"},
		{"wrong password", "dewi", "wrong"},
		{"inactive operator", "parked", "correct horse"},
		{"empty password", "dewi", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.username, tc.password)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
			require.Equal(t, "invalid username or password", appErr.Message)
		})
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc, store := newTestService(t)
	seedOperator(t, store, "dewi", "correct horse", RoleCashier, true)

	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })
	result, err := svc.Login(context.Background(), "dewi", "correct horse")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignSignature(t *testing.T) {
	svc, store := newTestService(t)
	seedOperator(t, store, "dewi", "correct horse", RoleCashier, true)
	result, err := svc.Login(context.Background(), "dewi", "correct horse")
	require.NoError(t, err)

	other, err := NewService(Config{Store: store, Secret: "a completely different secret"})
	require.NoError(t, err)
	_, err = other.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "X", "longenough", RoleCashier)
	require.Error(t, err)
	_, err = svc.Register(ctx, "x", "X", "short", RoleCashier)
	require.Error(t, err)
	_, err = svc.Register(ctx, "x", "X", "longenough", "superuser")
	require.Error(t, err)

	op, err := svc.Register(ctx, "budi", "Budi", "longenough", RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, op.Role)

	// The stored hash verifies against the original password.
	result, err := svc.Login(ctx, "budi", "longenough")
	require.NoError(t, err)
	require.Equal(t, op.ID, result.Operator.ID)
}

func TestRequireRole(t *testing.T) {
	svc, store := newTestService(t)
	seedOperator(t, store, "dewi", "correct horse", RoleCashier, true)
	admin := seedOperator(t, store, "budi", "correct horse", RoleAdmin, true)

	mw := Middleware{Service: svc}
	var reached bool
	protected := mw.RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Cashier token against an admin route.
	login, err := svc.Login(context.Background(), "dewi", "correct horse")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, reached)

	// Admin token passes and the identity lands on the context.
	login, err = svc.Login(context.Background(), "budi", "correct horse")
	require.NoError(t, err)
	var gotID string
	protected = mw.RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = common.OperatorID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, admin.ID.String(), gotID)
}
