package services

import (
	"testing"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encryptedPost(t *testing.T, codec *PostCodec, id int64, d models.PostDraft, key string) models.EncryptedPost {
	t.Helper()
	body, err := codec.Encode(d, key)
	require.NoError(t, err)
	return models.EncryptedPost{ID: id, Title: body.Title, Content: body.Content, Date: body.Date, CreatedAt: "2020-01-01T00:00:00Z"}
}

func TestPostCodec_RoundTrip(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	draft := models.PostDraft{Title: "Hello", Content: "World", Date: "2020-01-01"}

	body, err := codec.Encode(draft, "k1")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", body.Date)
	assert.NotEqual(t, "Hello", body.Title)
	assert.NotEqual(t, "World", body.Content)

	enc := models.EncryptedPost{ID: 3, Title: body.Title, Content: body.Content, Date: body.Date}
	got, ok := codec.DecodeOne(enc, "k1")
	require.True(t, ok)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, "World", got.Content)
	assert.Equal(t, "2020-01-01", got.Date)
	assert.Equal(t, int64(3), *got.ID)

	got, ok = codec.DecodeOne(enc, "k2")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPostCodec_EmptyFieldsAreReadable(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	enc := encryptedPost(t, codec, 1, models.PostDraft{Date: "2020-01-01"}, "k1")

	got, ok := codec.DecodeOne(enc, "k1")
	require.True(t, ok)
	assert.Empty(t, got.Title)
	assert.Empty(t, got.Content)
}

func TestPostCodec_PartialFailureDropsWholePost(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	good := encryptedPost(t, codec, 1, models.PostDraft{Title: "a", Content: "b"}, "k1")
	other := encryptedPost(t, codec, 1, models.PostDraft{Title: "a", Content: "b"}, "k2")

	mixed := good
	mixed.Content = other.Content

	_, ok := codec.DecodeOne(mixed, "k1")
	assert.False(t, ok)
}

func TestPostCodec_DecodeSummary(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	enc := encryptedPost(t, codec, 9, models.PostDraft{Title: "t", Content: "c", Date: "2021-02-03"}, "k1")
	sum := models.EncryptedSummary{ID: enc.ID, Title: enc.Title, Date: enc.Date}

	got, ok := codec.DecodeSummary(sum, "k1")
	require.True(t, ok)
	assert.Equal(t, models.SummarizedPost{ID: 9, Title: "t", Date: "2021-02-03"}, *got)

	_, ok = codec.DecodeSummary(sum, "k2")
	assert.False(t, ok)
}

func TestDecodeMany_FiltersAndKeepsOrder(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	in := []models.EncryptedPost{
		encryptedPost(t, codec, 1, models.PostDraft{Title: "first", Content: "1"}, "k1"),
		encryptedPost(t, codec, 2, models.PostDraft{Title: "second", Content: "2"}, "other"),
		encryptedPost(t, codec, 3, models.PostDraft{Title: "third", Content: "3"}, "k1"),
	}

	out := DecodeMany(in, func(p models.EncryptedPost) (*models.Post, bool) {
		return codec.DecodeOne(p, "k1")
	})

	titles := make([]string, 0, len(out))
	for _, p := range out {
		titles = append(titles, p.Title)
	}
	if diff := cmp.Diff([]string{"first", "third"}, titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestPostCodec_EncodePatch(t *testing.T) {
	codec := NewPostCodec(cryptox.NewAESCipher())
	title, date := "new", "2022-01-01"

	body, err := codec.EncodePatch(models.PostPatch{Title: &title, Date: &date}, "k1")
	require.NoError(t, err)
	require.NotNil(t, body.Title)
	assert.Nil(t, body.Content)
	assert.Equal(t, "2022-01-01", *body.Date)

	plain, err := cryptox.NewAESCipher().Decrypt(*body.Title, "k1")
	require.NoError(t, err)
	assert.Equal(t, "new", plain)
}
