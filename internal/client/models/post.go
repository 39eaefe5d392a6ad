package models

// Post is a diary entry with plaintext Title and Content. ID is nil until
// the post has been created on the server.
type Post struct {
	ID        *int64
	Title     string
	Content   string
	Date      string
	CreatedAt string
	UpdatedAt *string
}

// SummarizedPost is a listing row; only the title is decrypted.
type SummarizedPost struct {
	ID    int64
	Title string
	Date  string
}

// PostDraft holds the editable fields of a post before encryption.
type PostDraft struct {
	Title   string
	Date    string
	Content string
}

// IsEmpty reports whether all editable fields are empty. Empty drafts are
// never submitted.
func (d PostDraft) IsEmpty() bool {
	return d.Title == "" && d.Date == "" && d.Content == ""
}

// PostPatch carries the fields to change; nil means "leave as is".
type PostPatch struct {
	Title   *string
	Date    *string
	Content *string
}

// EncryptedPost is a post as stored and served by the server.
type EncryptedPost struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

// EncryptedSummary is a row of GET /summarized_posts.
type EncryptedSummary struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// PostBody is the request body of POST /posts.
type PostBody struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// PostUpdateBody is the request body of PATCH /posts/{id}.
type PostUpdateBody struct {
	Title   *string `json:"title,omitempty"`
	Date    *string `json:"date,omitempty"`
	Content *string `json:"content,omitempty"`
}
