package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/client/keyring"
	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
)

// PostService is the only consumer of plaintext diary content. The private
// key is resolved from the keyring for every call and not kept.
//
// Key problems surface as common.ErrKeyAbsent or common.ErrKeyMismatch,
// and every call requires a session (common.ErrNotLoggedIn).
type PostService interface {
	List(ctx context.Context) ([]models.SummarizedPost, error)
	ListFull(ctx context.Context) ([]models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, draft models.PostDraft) (int64, error)
	Update(ctx context.Context, last models.Post, patch models.PostPatch) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type postService struct {
	client   client.Client
	keys     *keyring.Manager
	sessions SessionSource
	codec    *PostCodec
	log      logging.Logger
}

func NewPostService(c client.Client, keys *keyring.Manager, sessions SessionSource, codec *PostCodec, log logging.Logger) PostService {
	return &postService{client: c, keys: keys, sessions: sessions, codec: codec, log: log}
}

func (s *postService) privateKey(ctx context.Context) (string, error) {
	sess := s.sessions.Session()
	if sess == nil {
		return "", common.ErrNotLoggedIn
	}
	return s.keys.PrivateKey(ctx, sess.Account.PublicKey)
}

// List returns title-only summaries. Rows that do not decrypt are left out.
func (s *postService) List(ctx context.Context) ([]models.SummarizedPost, error) {
	key, err := s.privateKey(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.client.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	out := DecodeMany(rows, func(r models.EncryptedSummary) (*models.SummarizedPost, bool) {
		return s.codec.DecodeSummary(r, key)
	})
	if dropped := len(rows) - len(out); dropped > 0 {
		s.log.Debug(ctx, "skipped unreadable posts", "count", dropped)
	}
	return out, nil
}

func (s *postService) ListFull(ctx context.Context) ([]models.Post, error) {
	key, err := s.privateKey(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.client.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	out := DecodeMany(rows, func(r models.EncryptedPost) (*models.Post, bool) {
		return s.codec.DecodeOne(r, key)
	})
	if dropped := len(rows) - len(out); dropped > 0 {
		s.log.Debug(ctx, "skipped unreadable posts", "count", dropped)
	}
	return out, nil
}

// Get returns (nil, nil) when the post exists but cannot be read with the
// device key.
func (s *postService) Get(ctx context.Context, id int64) (*models.Post, error) {
	key, err := s.privateKey(ctx)
	if err != nil {
		return nil, err
	}

	enc, err := s.client.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}

	p, ok := s.codec.DecodeOne(*enc, key)
	if !ok {
		s.log.Debug(ctx, "post is unreadable with the device key", "post_id", id)
		return nil, nil
	}
	return p, nil
}

// Create stores a new post and returns its id. An empty draft is not sent
// and yields (0, nil).
func (s *postService) Create(ctx context.Context, draft models.PostDraft) (int64, error) {
	if draft.IsEmpty() {
		return 0, nil
	}

	key, err := s.privateKey(ctx)
	if err != nil {
		return 0, err
	}

	body, err := s.codec.Encode(draft, key)
	if err != nil {
		return 0, err
	}

	id, err := s.client.CreatePost(ctx, body)
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// Update sends the fields of patch that differ from last. It returns false
// without a network call when every field is nil or empty, or when nothing
// changed.
func (s *postService) Update(ctx context.Context, last models.Post, patch models.PostPatch) (bool, error) {
	if last.ID == nil {
		return false, fmt.Errorf("update post: %w: post has no id", common.ErrValidation)
	}
	if blank(patch.Title) && blank(patch.Date) && blank(patch.Content) {
		return false, nil
	}

	changed := models.PostPatch{
		Title:   differs(patch.Title, last.Title),
		Date:    differs(patch.Date, last.Date),
		Content: differs(patch.Content, last.Content),
	}
	if changed.Title == nil && changed.Date == nil && changed.Content == nil {
		return false, nil
	}

	key, err := s.privateKey(ctx)
	if err != nil {
		return false, err
	}

	body, err := s.codec.EncodePatch(changed, key)
	if err != nil {
		return false, err
	}

	if err := s.client.UpdatePost(ctx, *last.ID, body); err != nil {
		return false, fmt.Errorf("update post %d: %w", *last.ID, err)
	}
	return true, nil
}

func (s *postService) Delete(ctx context.Context, id int64) error {
	if s.sessions.Session() == nil {
		return common.ErrNotLoggedIn
	}
	if err := s.client.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	return nil
}

func blank(v *string) bool {
	return v == nil || *v == ""
}

func differs(v *string, was string) *string {
	if v == nil || *v == was {
		return nil
	}
	return v
}
