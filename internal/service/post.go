package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
	"github.com/sakif/devconnect/internal/validate"
)

// PostInput is the payload of POST /api/posts.
type PostInput struct {
	Title string `json:"title" validate:"notblank" msg:"Title is required"`
	Body  string `json:"body" validate:"notblank" msg:"Body is required"`
}

// CommentInput is the payload of POST /api/posts/comment/{post_id}.
type CommentInput struct {
	Text string `json:"text" validate:"notblank" msg:"Text is required"`
}

// PostService handles posts, likes and comments. Every mutation of a post's
// likes or comments goes through PostRepository.UpdatePost so the check and
// the write see the same document.
type PostService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	validator *validate.Validator
	logger    *slog.Logger
}

// NewPostService creates a PostService. users is read to snapshot the
// author's name and avatar onto new posts and comments.
func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	validator *validate.Validator,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:     posts,
		users:     users,
		validator: validator,
		logger:    logger,
	}
}

// Create stores a new post authored by userID. The author's name and avatar
// are copied onto the post as they are now; later profile changes do not
// rewrite old posts.
func (s *PostService) Create(ctx context.Context, userID string, in PostInput) (*model.Post, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	author, err := lookupUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		User:      author.ID,
		Title:     strings.TrimSpace(in.Title),
		Body:      in.Body,
		Name:      author.Name,
		AvatarURL: author.AvatarURL,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("id", post.ID), slog.String("userID", userID))
	return post, nil
}

// List returns every post, newest first.
func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts: %w", err)
	}
	return posts, nil
}

// GetByID returns one post. Malformed ids are reported as not found.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	if err := checkPostID(id); err != nil {
		return nil, err
	}
	return s.posts.GetPostByID(ctx, id)
}

// Delete removes a post. Only its author may delete it.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	post, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.User != userID {
		return apperror.Forbidden("User not authorized")
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}

	s.logger.Info("post deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// Like adds userID to the post's likes and returns the new list.
// A second like by the same user is rejected with apperror.ErrConflict.
func (s *PostService) Like(ctx context.Context, userID, id string) ([]model.Like, error) {
	if err := checkPostID(id); err != nil {
		return nil, err
	}

	post, err := s.posts.UpdatePost(ctx, id, func(p *model.Post) error {
		if p.LikedBy(userID) >= 0 {
			return apperror.Conflict("Post already liked")
		}
		p.Likes = append(p.Likes, model.Like{User: userID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Likes, nil
}

// Unlike removes userID from the post's likes and returns the new list.
func (s *PostService) Unlike(ctx context.Context, userID, id string) ([]model.Like, error) {
	if err := checkPostID(id); err != nil {
		return nil, err
	}

	post, err := s.posts.UpdatePost(ctx, id, func(p *model.Post) error {
		i := p.LikedBy(userID)
		if i < 0 {
			return apperror.Conflict("Post has not yet been liked")
		}
		p.Likes = slices.Delete(p.Likes, i, i+1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Likes, nil
}

// AddComment prepends a comment by userID and returns the post's comments.
func (s *PostService) AddComment(ctx context.Context, userID, id string, in CommentInput) ([]model.Comment, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := checkPostID(id); err != nil {
		return nil, err
	}

	author, err := lookupUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        xid.New().String(),
		User:      author.ID,
		Text:      in.Text,
		Name:      author.Name,
		AvatarURL: author.AvatarURL,
		Date:      time.Now().UTC(),
	}

	post, err := s.posts.UpdatePost(ctx, id, func(p *model.Post) error {
		p.Comments = slices.Insert(p.Comments, 0, comment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

// RemoveComment deletes comment commentID from post id and returns the
// remaining comments. Only the comment's author may remove it.
//
// The comment addressed by commentID is the one removed. Earlier versions of
// this API removed the caller's first comment on the post instead, which
// could delete a different comment than the one checked.
func (s *PostService) RemoveComment(ctx context.Context, userID, id, commentID string) ([]model.Comment, error) {
	if err := checkPostID(id); err != nil {
		return nil, err
	}

	post, err := s.posts.UpdatePost(ctx, id, func(p *model.Post) error {
		i := p.CommentIndex(commentID)
		if i < 0 {
			return apperror.NotFoundMsg("Comment does not exist")
		}
		if p.Comments[i].User != userID {
			return apperror.Forbidden("User not authorized")
		}
		p.Comments = slices.Delete(p.Comments, i, i+1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

func checkPostID(id string) error {
	if _, err := xid.FromString(id); err != nil {
		return apperror.NotFoundMsg("Post not found")
	}
	return nil
}
