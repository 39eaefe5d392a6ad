package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/google/uuid"
)

// fakeClient implements client.Client for service unit tests. It records
// every call by name; results are set through the exported fields.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int
	token string

	LoginToken string
	LoginErr   error
	LogoutErr  error
	RefreshErr error

	SignUpTicket   string
	SignUpErr      error
	CreateUserErr  error
	LastCreateUser models.CreateUserBody

	Account *models.Account
	MeErr   error

	LastUpdateUser models.UpdateUserBody
	UpdateUserErr  error

	LastReset models.ResetPasswordBody
	ResetErr  error

	Sessions []models.ActiveSession

	Posts     []models.EncryptedPost
	Summaries []models.EncryptedSummary
	Post      *models.EncryptedPost
	PostErr   error
	NewPostID int64

	LastCreatePost models.PostBody
	LastUpdatePost models.PostUpdateBody
	LastUpdateID   int64
	UpdatePostErr  error
	LastDeleteID   int64
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{calls: make(map[string]int), LoginToken: "token", NewPostID: 1}
}

func (f *fakeClient) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeClient) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeClient) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) SetAccessToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeClient) ClearAccessToken() { f.SetAccessToken("") }

func (f *fakeClient) Login(_ context.Context, _, _ string) (string, error) {
	f.hit("Login")
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	f.SetAccessToken(f.LoginToken)
	return f.LoginToken, nil
}

func (f *fakeClient) Logout(context.Context) error {
	f.hit("Logout")
	return f.LogoutErr
}

func (f *fakeClient) RefreshToken(context.Context) (string, error) {
	f.hit("RefreshToken")
	if f.RefreshErr != nil {
		return "", f.RefreshErr
	}
	f.SetAccessToken("refreshed")
	return "refreshed", nil
}

func (f *fakeClient) RequestSignUpToken(context.Context, models.SignUpTokenBody) (string, error) {
	f.hit("RequestSignUpToken")
	return f.SignUpTicket, f.SignUpErr
}

func (f *fakeClient) RequestPasswordToken(context.Context, string) error {
	f.hit("RequestPasswordToken")
	return nil
}

func (f *fakeClient) ListSessions(context.Context) ([]models.ActiveSession, error) {
	f.hit("ListSessions")
	return f.Sessions, nil
}

func (f *fakeClient) RevokeSession(context.Context, uuid.UUID) error {
	f.hit("RevokeSession")
	return nil
}

func (f *fakeClient) CreateUser(_ context.Context, body models.CreateUserBody) error {
	f.hit("CreateUser")
	f.LastCreateUser = body
	return f.CreateUserErr
}

func (f *fakeClient) Me(context.Context) (*models.Account, error) {
	f.hit("Me")
	if f.MeErr != nil {
		return nil, f.MeErr
	}
	acc := *f.Account
	return &acc, nil
}

func (f *fakeClient) UpdateUser(_ context.Context, _ int64, body models.UpdateUserBody) error {
	f.hit("UpdateUser")
	f.LastUpdateUser = body
	return f.UpdateUserErr
}

func (f *fakeClient) ResetPassword(_ context.Context, body models.ResetPasswordBody) error {
	f.hit("ResetPassword")
	f.LastReset = body
	return f.ResetErr
}

func (f *fakeClient) ListPosts(context.Context) ([]models.EncryptedPost, error) {
	f.hit("ListPosts")
	return f.Posts, nil
}

func (f *fakeClient) ListSummaries(context.Context) ([]models.EncryptedSummary, error) {
	f.hit("ListSummaries")
	return f.Summaries, nil
}

func (f *fakeClient) GetPost(context.Context, int64) (*models.EncryptedPost, error) {
	f.hit("GetPost")
	if f.PostErr != nil {
		return nil, f.PostErr
	}
	return f.Post, nil
}

func (f *fakeClient) CreatePost(_ context.Context, body models.PostBody) (int64, error) {
	f.hit("CreatePost")
	f.LastCreatePost = body
	return f.NewPostID, nil
}

func (f *fakeClient) UpdatePost(_ context.Context, id int64, body models.PostUpdateBody) error {
	f.hit("UpdatePost")
	f.LastUpdateID = id
	f.LastUpdatePost = body
	return f.UpdatePostErr
}

func (f *fakeClient) DeletePost(_ context.Context, id int64) error {
	f.hit("DeletePost")
	f.LastDeleteID = id
	return nil
}
