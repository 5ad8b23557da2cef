// Package repository declares the storage interfaces the services depend on.
//
// Profiles and posts are documents: their embedded lists (experience,
// education, likes, comments) are read and written together with the parent.
// The Update* methods give per-document atomic read-modify-write: the
// mutator runs against the freshly loaded document and its result is written
// back in one step. A mutator that returns an error aborts the write and the
// error is returned unchanged.
package repository

import (
	"context"

	"github.com/sakif/devconnect/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// ProfileMutator edits a loaded profile in place.
type ProfileMutator func(p *model.Profile) error

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfileByUser(ctx context.Context, userID string) (*model.Profile, error)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	UpdateProfile(ctx context.Context, userID string, fn ProfileMutator) (*model.Profile, error)
	DeleteProfileByUser(ctx context.Context, userID string) error
}

// PostMutator edits a loaded post in place.
type PostMutator func(p *model.Post) error

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)
	UpdatePost(ctx context.Context, id string, fn PostMutator) (*model.Post, error)
	DeletePost(ctx context.Context, id string) error
	DeletePostsByUser(ctx context.Context, userID string) (int64, error)
}
