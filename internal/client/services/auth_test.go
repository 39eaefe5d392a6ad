package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophdiary/internal/client/keyring"
	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

type authFixture struct {
	client *fakeClient
	store  *metadata.MemoryRepository
	keys   *keyring.Manager
	svc    AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	fc := newFakeClient()
	fc.Account = &models.Account{ID: 7, Email: "ann@example.com", Name: "Ann", PublicKey: "pub-x"}
	store := metadata.NewMemoryRepository()
	keys := keyring.NewManager(cryptox.NewAESCipher(), store, "", logging.NewNop())
	return &authFixture{
		client: fc,
		store:  store,
		keys:   keys,
		svc:    NewAuthService(fc, keys, logging.NewNop()),
	}
}

func (f *authFixture) login(t *testing.T) {
	t.Helper()
	_, err := f.svc.Login(context.Background(), "ann@example.com", "password1")
	require.NoError(t, err)
}

func (f *authFixture) storeKey(t *testing.T, priv, pub string) string {
	t.Helper()
	w, err := f.keys.Wrap(priv, pub)
	require.NoError(t, err)
	require.NoError(t, f.keys.Persist(context.Background(), w))
	return w.Ciphertext
}

func (f *authFixture) storedKey(t *testing.T) []byte {
	t.Helper()
	v, err := f.store.Get(context.Background(), keyring.DefaultKeyName)
	require.NoError(t, err)
	return v
}

// ---- sign up ----

func TestRequestSignUpToken_Validation(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.RequestSignUpToken(context.Background(), SignUpRequest{Name: "Ann", Email: "not-an-email", Password: "password1"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, 0, f.client.TotalCalls())
}

func TestRequestSignUpToken_NoKeyMaterial(t *testing.T) {
	f := newAuthFixture(t)
	f.client.SignUpTicket = "ticket"

	ticket, err := f.svc.RequestSignUpToken(context.Background(), SignUpRequest{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ticket", ticket)
	assert.Nil(t, f.storedKey(t))
}

func TestVerify_PersistsKeyOnAcceptance(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	reg, err := f.svc.Verify(ctx, VerifyRequest{TokenKey: "ticket", Pin: "123456"})
	require.NoError(t, err)

	sent := f.client.LastCreateUser
	assert.Equal(t, "ticket", sent.TokenKey)
	assert.Equal(t, "123456", sent.TokenPin)
	assert.Equal(t, reg.Account.PublicKey, sent.UserPublicKey)
	assert.Len(t, sent.UserPublicKey, common.SecretSize*2)

	assert.Equal(t, reg.WrappedKey.Ciphertext, string(f.storedKey(t)))

	priv, err := f.keys.PrivateKey(ctx, sent.UserPublicKey)
	require.NoError(t, err)
	assert.Len(t, priv, common.SecretSize*2)
	assert.NotEqual(t, sent.UserPublicKey, priv)
}

func TestVerify_RejectedLeavesNoKey(t *testing.T) {
	f := newAuthFixture(t)
	f.client.CreateUserErr = common.ErrUnauthorized

	_, err := f.svc.Verify(context.Background(), VerifyRequest{TokenKey: "ticket", Pin: "000000"})
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Nil(t, f.storedKey(t))
}

func TestVerify_KeepsExistingKeyOnFailure(t *testing.T) {
	f := newAuthFixture(t)
	old := f.storeKey(t, "old-priv", "old-pub")
	f.client.CreateUserErr = common.ErrNotFound

	_, err := f.svc.Verify(context.Background(), VerifyRequest{TokenKey: "expired", Pin: "1"})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, old, string(f.storedKey(t)))
}

// ---- login / logout ----

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	old := f.storeKey(t, "priv", "other-pub")

	s, err := f.svc.Login(context.Background(), "ann@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "token", s.AccessToken)
	assert.Equal(t, int64(7), s.Account.ID)
	assert.True(t, s.ExpiresAt.IsZero())

	// login never rewrites the device key, even for another account's key
	assert.Equal(t, old, string(f.storedKey(t)))
	assert.NotNil(t, f.svc.Session())
}

func TestLogin_Failure(t *testing.T) {
	f := newAuthFixture(t)
	f.client.LoginErr = common.ErrNotFound

	_, err := f.svc.Login(context.Background(), "ann@example.com", "bad")
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Nil(t, f.svc.Session())
}

func TestLogin_MeFailureClearsToken(t *testing.T) {
	f := newAuthFixture(t)
	f.client.MeErr = common.ErrNetwork

	_, err := f.svc.Login(context.Background(), "ann@example.com", "password1")
	require.ErrorIs(t, err, common.ErrNetwork)
	assert.Empty(t, f.client.AccessToken())
	assert.Nil(t, f.svc.Session())
}

func TestRestore(t *testing.T) {
	f := newAuthFixture(t)

	s, err := f.svc.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", s.AccessToken)

	f2 := newAuthFixture(t)
	f2.client.RefreshErr = common.ErrUnauthorized
	_, err = f2.svc.Restore(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, 0, f2.client.Calls("Me"))
}

func TestLogout_KeepsDeviceKey(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t)
	key := f.storeKey(t, "priv", "pub-x")

	require.NoError(t, f.svc.Logout(context.Background()))
	assert.Nil(t, f.svc.Session())
	assert.Empty(t, f.client.AccessToken())
	assert.Equal(t, key, string(f.storedKey(t)))
}

func TestLogout_ServerErrorStillForgetsSession(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t)
	f.client.LogoutErr = common.ErrNetwork

	err := f.svc.Logout(context.Background())
	require.ErrorIs(t, err, common.ErrNetwork)
	assert.Nil(t, f.svc.Session())
}

// ---- password ----

func TestResetPassword_HashesNewPassword(t *testing.T) {
	f := newAuthFixture(t)

	ok, err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "ann@example.com", TokenID: "tid", TemporaryPassword: "tmp", NewPassword: "newpassword",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, cryptox.HashPassword("newpassword"), f.client.LastReset.NewPassword)
	assert.Equal(t, "tmp", f.client.LastReset.TemporaryPassword)

	f.client.ResetErr = common.ErrNotFound
	ok, err = f.svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "ann@example.com", TokenID: "tid", TemporaryPassword: "tmp", NewPassword: "newpassword",
	})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.False(t, ok)
}

func TestRequestPasswordToken_Validation(t *testing.T) {
	f := newAuthFixture(t)
	require.ErrorIs(t, f.svc.RequestPasswordToken(context.Background(), ""), common.ErrValidation)
	require.NoError(t, f.svc.RequestPasswordToken(context.Background(), "ann@example.com"))
	assert.Equal(t, 1, f.client.Calls("RequestPasswordToken"))
}

func TestUpdateUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.ChangePassword(ctx, "newpassword"), common.ErrNotLoggedIn)

	f.login(t)
	require.NoError(t, f.svc.ChangePassword(ctx, "newpassword"))
	require.NotNil(t, f.client.LastUpdateUser.Password)
	assert.Equal(t, cryptox.HashPassword("newpassword"), *f.client.LastUpdateUser.Password)
	assert.Nil(t, f.client.LastUpdateUser.Name)

	name := "Annie"
	require.NoError(t, f.svc.UpdateUser(ctx, UserUpdate{Name: &name}))
	assert.Equal(t, "Annie", f.svc.Session().Account.Name)

	require.NoError(t, f.svc.UpdateUser(ctx, UserUpdate{}))
	assert.Equal(t, 2, f.client.Calls("UpdateUser"))

	short := "x"
	require.ErrorIs(t, f.svc.ChangePassword(ctx, short), common.ErrValidation)
}

// ---- sessions ----

func TestSessions_RequireLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListSessions(ctx)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)
	require.ErrorIs(t, f.svc.RevokeSession(ctx, uuid.New()), common.ErrNotLoggedIn)

	f.login(t)
	f.client.Sessions = []models.ActiveSession{{IsMine: true, TokenUUID: uuid.New()}}
	got, err := f.svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	require.NoError(t, f.svc.RevokeSession(ctx, uuid.New()))
}

// ---- secret key ----

func TestKeyStatus(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.KeyStatus(ctx)
	require.ErrorIs(t, err, common.ErrNotLoggedIn)

	f.login(t)
	st, err := f.svc.KeyStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyring.KeyStatusAbsent, st)

	f.storeKey(t, "priv", "pub-y")
	st, err = f.svc.KeyStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyring.KeyStatusMismatch, st)

	f.storeKey(t, "priv", "pub-x")
	st, err = f.svc.KeyStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, keyring.KeyStatusReady, st)
}

func TestExportSecretKey(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.login(t)

	_, err := f.svc.ExportSecretKey(ctx)
	require.ErrorIs(t, err, common.ErrKeyAbsent)

	f.storeKey(t, "priv", "pub-y")
	_, err = f.svc.ExportSecretKey(ctx)
	require.ErrorIs(t, err, common.ErrKeyMismatch)

	want := f.storeKey(t, "priv", "pub-x")
	got, err := f.svc.ExportSecretKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImportSecretKey(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.login(t)

	foreign, err := f.keys.Wrap("priv", "pub-y")
	require.NoError(t, err)
	err = f.svc.ImportSecretKey(ctx, "password1", foreign.Ciphertext)
	require.ErrorIs(t, err, common.ErrKeyMismatch)
	assert.Nil(t, f.storedKey(t))

	own, err := f.keys.Wrap("priv", "pub-x")
	require.NoError(t, err)
	require.NoError(t, f.svc.ImportSecretKey(ctx, "password1", own.Ciphertext))

	priv, err := f.keys.PrivateKey(ctx, "pub-x")
	require.NoError(t, err)
	assert.Equal(t, "priv", priv)
}

func TestImportSecretKey_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t)
	f.client.LoginErr = common.ErrNotFound

	own, err := f.keys.Wrap("priv", "pub-x")
	require.NoError(t, err)
	err = f.svc.ImportSecretKey(context.Background(), "bad", own.Ciphertext)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Nil(t, f.storedKey(t))
}

func TestIssueSecretKey_ReplacesKey(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.login(t)
	old := f.storeKey(t, "old-priv", "pub-x")

	secret, err := f.svc.IssueSecretKey(ctx, "password1")
	require.NoError(t, err)
	assert.NotEqual(t, old, secret)
	assert.Equal(t, secret, string(f.storedKey(t)))

	priv, err := f.keys.PrivateKey(ctx, "pub-x")
	require.NoError(t, err)
	assert.NotEqual(t, "old-priv", priv)
	assert.Len(t, priv, common.SecretSize*2)
}

func TestIssueSecretKey_ReauthFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.login(t)
	old := f.storeKey(t, "old-priv", "pub-x")
	boom := errors.New("boom")
	f.client.LoginErr = boom

	_, err := f.svc.IssueSecretKey(context.Background(), "password1")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, old, string(f.storedKey(t)))
}
