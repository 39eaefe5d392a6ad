package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/common"
)

const dateLayout = time.DateOnly

func parsePostID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a post id", common.ErrValidation, s)
	}
	return id, nil
}

// List prints post titles newest first, as ordered by the server.
func (a *App) List(ctx context.Context) error {
	var posts []models.SummarizedPost
	err := a.call(ctx, "Loading posts...", func(ctx context.Context) error {
		var err error
		posts, err = a.postService.List(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		a.printf("No posts yet. Use 'write' to add one.\n")
		return nil
	}
	a.printf("%s\n", titleText.Sprintf("%-6s  %-10s  %s", "ID", "DATE", "TITLE"))
	for _, p := range posts {
		a.printf("%-6d  %-10s  %s\n", p.ID, p.Date, p.Title)
	}
	return nil
}

func (a *App) Show(ctx context.Context, arg string) error {
	id, err := parsePostID(arg)
	if err != nil {
		return err
	}
	post, err := a.fetch(ctx, id)
	if err != nil || post == nil {
		return err
	}

	a.printf("%s\n", titleText.Sprintf("%s", post.Title))
	a.printf("%s\n", dimText.Sprintf("%s (created %s)", post.Date, post.CreatedAt))
	a.printf("\n%s\n", post.Content)
	return nil
}

// fetch loads and decrypts a post. A post the device key cannot read is
// reported and yields nil.
func (a *App) fetch(ctx context.Context, id int64) (*models.Post, error) {
	var post *models.Post
	err := a.call(ctx, "Loading post...", func(ctx context.Context) error {
		var err error
		post, err = a.postService.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if post == nil {
		a.printf("%s\n", warningText.Sprintf("post %d cannot be decrypted with the key on this device", id))
	}
	return post, nil
}

func (a *App) Write(ctx context.Context) error {
	title, err := a.text("Title")
	if err != nil {
		return err
	}
	date, err := a.text(fmt.Sprintf("Date [%s]", time.Now().Format(dateLayout)))
	if err != nil {
		return err
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("%w: date must look like 2006-01-02", common.ErrValidation)
		}
	}
	content, err := GetMultiline(a.reader, "Content", a.out)
	if err != nil {
		return err
	}
	if date == "" && (title != "" || content != "") {
		date = time.Now().Format(dateLayout)
	}

	draft := models.PostDraft{Title: title, Date: date, Content: content}
	var id int64
	err = a.call(ctx, "Saving post...", func(ctx context.Context) error {
		id, err = a.postService.Create(ctx, draft)
		return err
	})
	if err != nil {
		return err
	}
	if id == 0 {
		a.printf("Empty post discarded.\n")
		return nil
	}
	a.printf("%s\n", successText.Sprintf("Post %d saved.", id))
	return nil
}

// Edit asks for every field; an empty answer keeps the current value.
func (a *App) Edit(ctx context.Context, arg string) error {
	id, err := parsePostID(arg)
	if err != nil {
		return err
	}
	post, err := a.fetch(ctx, id)
	if err != nil || post == nil {
		return err
	}

	var patch models.PostPatch
	title, err := a.text(fmt.Sprintf("Title [%s]", post.Title))
	if err != nil {
		return err
	}
	patch.Title = optional(title)

	date, err := a.text(fmt.Sprintf("Date [%s]", post.Date))
	if err != nil {
		return err
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("%w: date must look like 2006-01-02", common.ErrValidation)
		}
		patch.Date = &date
	}

	content, err := GetMultiline(a.reader, "Content (empty keeps current)", a.out)
	if err != nil {
		return err
	}
	patch.Content = optional(content)

	var changed bool
	err = a.call(ctx, "Saving post...", func(ctx context.Context) error {
		changed, err = a.postService.Update(ctx, *post, patch)
		return err
	})
	if err != nil {
		return err
	}
	if !changed {
		a.printf("Nothing to change.\n")
		return nil
	}
	a.printf("%s\n", successText.Sprintf("Post %d updated.", id))
	return nil
}

func (a *App) Delete(ctx context.Context, arg string) error {
	id, err := parsePostID(arg)
	if err != nil {
		return err
	}
	answer, err := a.text(fmt.Sprintf("Delete post %d? [y/N]", id))
	if err != nil {
		return err
	}
	if answer != "y" && answer != "Y" {
		return nil
	}
	if err := a.call(ctx, "Deleting post...", func(ctx context.Context) error {
		return a.postService.Delete(ctx, id)
	}); err != nil {
		return err
	}
	a.printf("%s\n", successText.Sprintf("Post %d deleted.", id))
	return nil
}
