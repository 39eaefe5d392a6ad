package services

import (
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
)

// PostCodec encrypts post titles and contents on the way out and decrypts
// them on the way in. Dates and ids pass through unchanged.
//
// A post whose title or content does not decrypt is dropped as a whole;
// it is never returned half decrypted.
type PostCodec struct {
	cipher cryptox.Cipher
}

func NewPostCodec(c cryptox.Cipher) *PostCodec {
	return &PostCodec{cipher: c}
}

func (c *PostCodec) Encode(d models.PostDraft, key string) (models.PostBody, error) {
	title, err := c.cipher.Encrypt(d.Title, key)
	if err != nil {
		return models.PostBody{}, fmt.Errorf("encrypt title: %w", err)
	}
	content, err := c.cipher.Encrypt(d.Content, key)
	if err != nil {
		return models.PostBody{}, fmt.Errorf("encrypt content: %w", err)
	}
	return models.PostBody{Title: title, Date: d.Date, Content: content}, nil
}

// EncodePatch encrypts the non-nil text fields of p.
func (c *PostCodec) EncodePatch(p models.PostPatch, key string) (models.PostUpdateBody, error) {
	body := models.PostUpdateBody{Date: p.Date}
	if p.Title != nil {
		title, err := c.cipher.Encrypt(*p.Title, key)
		if err != nil {
			return models.PostUpdateBody{}, fmt.Errorf("encrypt title: %w", err)
		}
		body.Title = &title
	}
	if p.Content != nil {
		content, err := c.cipher.Encrypt(*p.Content, key)
		if err != nil {
			return models.PostUpdateBody{}, fmt.Errorf("encrypt content: %w", err)
		}
		body.Content = &content
	}
	return body, nil
}

// DecodeOne returns the plaintext post, or false when it cannot be read
// with key.
func (c *PostCodec) DecodeOne(p models.EncryptedPost, key string) (*models.Post, bool) {
	title, err := c.cipher.Decrypt(p.Title, key)
	if err != nil {
		return nil, false
	}
	content, err := c.cipher.Decrypt(p.Content, key)
	if err != nil {
		return nil, false
	}

	id := p.ID
	return &models.Post{
		ID:        &id,
		Title:     title,
		Content:   content,
		Date:      p.Date,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, true
}

// DecodeSummary decrypts only the title.
func (c *PostCodec) DecodeSummary(s models.EncryptedSummary, key string) (*models.SummarizedPost, bool) {
	title, err := c.cipher.Decrypt(s.Title, key)
	if err != nil {
		return nil, false
	}
	return &models.SummarizedPost{ID: s.ID, Title: title, Date: s.Date}, true
}

// DecodeMany applies decode to every item, drops the unreadable ones and
// keeps the order of the rest.
func DecodeMany[W, P any](items []W, decode func(W) (*P, bool)) []P {
	out := make([]P, 0, len(items))
	for _, it := range items {
		if p, ok := decode(it); ok {
			out = append(out, *p)
		}
	}
	return out
}
