package client

import (
	"context"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/google/uuid"
)

type Client interface {
	AccessToken() string
	SetAccessToken(token string)
	ClearAccessToken()

	Login(ctx context.Context, email, passwordHash string) (string, error)
	Logout(ctx context.Context) error
	RefreshToken(ctx context.Context) (string, error)
	RequestSignUpToken(ctx context.Context, body models.SignUpTokenBody) (string, error)
	RequestPasswordToken(ctx context.Context, email string) error
	ListSessions(ctx context.Context) ([]models.ActiveSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error

	CreateUser(ctx context.Context, body models.CreateUserBody) error
	Me(ctx context.Context) (*models.Account, error)
	UpdateUser(ctx context.Context, id int64, body models.UpdateUserBody) error
	ResetPassword(ctx context.Context, body models.ResetPasswordBody) error

	ListPosts(ctx context.Context) ([]models.EncryptedPost, error)
	ListSummaries(ctx context.Context) ([]models.EncryptedSummary, error)
	GetPost(ctx context.Context, id int64) (*models.EncryptedPost, error)
	CreatePost(ctx context.Context, body models.PostBody) (int64, error)
	UpdatePost(ctx context.Context, id int64, body models.PostUpdateBody) error
	DeletePost(ctx context.Context, id int64) error
}
