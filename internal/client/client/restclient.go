package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/transport"
	"github.com/google/uuid"
)

type RESTClient struct {
	t *transport.Transport
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(t *transport.Transport) *RESTClient {
	return &RESTClient{t: t}
}

func (c *RESTClient) AccessToken() string         { return c.t.AccessToken() }
func (c *RESTClient) SetAccessToken(token string) { c.t.SetAccessToken(token) }
func (c *RESTClient) ClearAccessToken()           { c.t.ClearAccessToken() }

// Login exchanges credentials for an access token and keeps it for the
// following calls. The refresh credential arrives as a cookie.
func (c *RESTClient) Login(ctx context.Context, email, passwordHash string) (string, error) {
	token, err := transport.Post[models.LoginBody, string](transport.Anonymous(ctx), c.t, "/auth/login",
		models.LoginBody{Email: email, Password: passwordHash})
	if err != nil {
		return "", err
	}
	c.t.SetAccessToken(token)
	return token, nil
}

func (c *RESTClient) Logout(ctx context.Context) error {
	_, err := transport.PostWithoutBody[bool](ctx, c.t, "/auth/logout")
	c.t.ClearAccessToken()
	return err
}

func (c *RESTClient) RefreshToken(ctx context.Context) (string, error) {
	return c.t.Refresh(ctx)
}

func (c *RESTClient) RequestSignUpToken(ctx context.Context, body models.SignUpTokenBody) (string, error) {
	return transport.Post[models.SignUpTokenBody, string](transport.Anonymous(ctx), c.t, "/auth/token/sign_up", body)
}

func (c *RESTClient) RequestPasswordToken(ctx context.Context, email string) error {
	ok, err := transport.Post[models.PasswordTokenBody, bool](transport.Anonymous(ctx), c.t, "/auth/token/password",
		models.PasswordTokenBody{Email: email})
	return rejected(ok, err)
}

func (c *RESTClient) ListSessions(ctx context.Context) ([]models.ActiveSession, error) {
	return transport.Get[[]models.ActiveSession](ctx, c.t, "/auth/token")
}

func (c *RESTClient) RevokeSession(ctx context.Context, id uuid.UUID) error {
	ok, err := transport.Delete[bool](ctx, c.t, "/auth/token/"+id.String())
	return rejected(ok, err)
}

func (c *RESTClient) CreateUser(ctx context.Context, body models.CreateUserBody) error {
	ok, err := transport.Post[models.CreateUserBody, bool](transport.Anonymous(ctx), c.t, "/users", body)
	return rejected(ok, err)
}

func (c *RESTClient) Me(ctx context.Context) (*models.Account, error) {
	acc, err := transport.Get[models.Account](ctx, c.t, "/users/me")
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *RESTClient) UpdateUser(ctx context.Context, id int64, body models.UpdateUserBody) error {
	ok, err := transport.Patch[models.UpdateUserBody, bool](ctx, c.t, fmt.Sprintf("/users/%d", id), body)
	return rejected(ok, err)
}

func (c *RESTClient) ResetPassword(ctx context.Context, body models.ResetPasswordBody) error {
	ok, err := transport.Post[models.ResetPasswordBody, bool](transport.Anonymous(ctx), c.t, "/users/password", body)
	return rejected(ok, err)
}

func (c *RESTClient) ListPosts(ctx context.Context) ([]models.EncryptedPost, error) {
	return transport.Get[[]models.EncryptedPost](ctx, c.t, "/posts")
}

func (c *RESTClient) ListSummaries(ctx context.Context) ([]models.EncryptedSummary, error) {
	return transport.Get[[]models.EncryptedSummary](ctx, c.t, "/summarized_posts")
}

func (c *RESTClient) GetPost(ctx context.Context, id int64) (*models.EncryptedPost, error) {
	p, err := transport.Get[models.EncryptedPost](ctx, c.t, fmt.Sprintf("/posts/%d", id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RESTClient) CreatePost(ctx context.Context, body models.PostBody) (int64, error) {
	return transport.Post[models.PostBody, int64](ctx, c.t, "/posts", body)
}

func (c *RESTClient) UpdatePost(ctx context.Context, id int64, body models.PostUpdateBody) error {
	ok, err := transport.Patch[models.PostUpdateBody, bool](ctx, c.t, fmt.Sprintf("/posts/%d", id), body)
	return rejected(ok, err)
}

func (c *RESTClient) DeletePost(ctx context.Context, id int64) error {
	ok, err := transport.Delete[bool](ctx, c.t, fmt.Sprintf("/posts/%d", id))
	return rejected(ok, err)
}

func rejected(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}
