package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
	"github.com/sakif/devconnect/internal/validate"
)

// In-memory fakes of the repository interfaces. They copy on the way in and
// on the way out so a test cannot mutate stored state by accident.

var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.ProfileRepository = (*fakeProfileRepo)(nil)
	_ repository.PostRepository    = (*fakePostRepo)(nil)
)

type fakeUserRepo struct {
	users map[string]model.User
	// set to simulate a database failure
	err error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("User already registered")
		}
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFoundMsg("user not found")
}

func (f *fakeUserRepo) DeleteUser(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

// seed stores a user directly and returns it.
func (f *fakeUserRepo) seed(name, email string) *model.User {
	u := model.User{
		ID:        xid.New().String(),
		Name:      name,
		Email:     email,
		AvatarURL: auth.AvatarURL(email),
		CreatedAt: time.Now().UTC(),
	}
	f.users[u.ID] = u
	return &u
}

type fakeProfileRepo struct {
	byUser map[string]model.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byUser: make(map[string]model.Profile)}
}

func cloneProfile(p model.Profile) model.Profile {
	p.Skills = slices.Clone(p.Skills)
	p.Social = maps.Clone(p.Social)
	p.Experience = slices.Clone(p.Experience)
	p.Education = slices.Clone(p.Education)
	return p
}

func (f *fakeProfileRepo) CreateProfile(_ context.Context, p *model.Profile) error {
	if _, ok := f.byUser[p.User.ID]; ok {
		return apperror.Conflict("Profile already exists")
	}
	p.ID = xid.New().String()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.byUser[p.User.ID] = cloneProfile(*p)
	return nil
}

func (f *fakeProfileRepo) GetProfileByUser(_ context.Context, userID string) (*model.Profile, error) {
	p, ok := f.byUser[userID]
	if !ok {
		return nil, apperror.NotFoundMsg("There is no profile for this user")
	}
	p = cloneProfile(p)
	return &p, nil
}

func (f *fakeProfileRepo) ListProfiles(_ context.Context) ([]model.Profile, error) {
	out := make([]model.Profile, 0, len(f.byUser))
	for _, p := range f.byUser {
		out = append(out, cloneProfile(p))
	}
	return out, nil
}

func (f *fakeProfileRepo) UpdateProfile(_ context.Context, userID string, fn repository.ProfileMutator) (*model.Profile, error) {
	stored, ok := f.byUser[userID]
	if !ok {
		return nil, apperror.NotFoundMsg("There is no profile for this user")
	}
	p := cloneProfile(stored)
	if err := fn(&p); err != nil {
		return nil, err
	}
	p.User.ID = userID
	f.byUser[userID] = cloneProfile(p)
	return &p, nil
}

func (f *fakeProfileRepo) DeleteProfileByUser(_ context.Context, userID string) error {
	delete(f.byUser, userID)
	return nil
}

type fakePostRepo struct {
	posts map[string]model.Post
	order []string
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]model.Post)}
}

func clonePost(p model.Post) model.Post {
	p.Likes = slices.Clone(p.Likes)
	p.Comments = slices.Clone(p.Comments)
	return p
}

func (f *fakePostRepo) CreatePost(_ context.Context, p *model.Post) error {
	p.ID = xid.New().String()
	p.Date = time.Now().UTC()
	if p.Likes == nil {
		p.Likes = []model.Like{}
	}
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	f.posts[p.ID] = clonePost(*p)
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Post not found")
	}
	p = clonePost(p)
	return &p, nil
}

func (f *fakePostRepo) ListPosts(_ context.Context) ([]model.Post, error) {
	out := make([]model.Post, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		if p, ok := f.posts[f.order[i]]; ok {
			out = append(out, clonePost(p))
		}
	}
	return out, nil
}

func (f *fakePostRepo) UpdatePost(_ context.Context, id string, fn repository.PostMutator) (*model.Post, error) {
	stored, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFoundMsg("Post not found")
	}
	p := clonePost(stored)
	if err := fn(&p); err != nil {
		return nil, err
	}
	p.ID, p.User, p.Date = stored.ID, stored.User, stored.Date
	f.posts[id] = clonePost(p)
	return &p, nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFoundMsg("Post not found")
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) DeletePostsByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, p := range f.posts {
		if p.User == userID {
			delete(f.posts, id)
			n++
		}
	}
	return n, nil
}

var errDatabaseDown = errors.New("database is down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator(t *testing.T) *validate.Validator {
	t.Helper()
	return validate.New()
}
