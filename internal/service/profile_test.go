package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

type profileFixture struct {
	svc      *ProfileService
	users    *fakeUserRepo
	profiles *fakeProfileRepo
	posts    *fakePostRepo
}

func newTestProfileService(t *testing.T) *profileFixture {
	t.Helper()
	f := &profileFixture{
		users:    newFakeUserRepo(),
		profiles: newFakeProfileRepo(),
		posts:    newFakePostRepo(),
	}
	f.svc = NewProfileService(f.profiles, f.posts, f.users, testValidator(t), testLogger())
	return f
}

func TestUpsert_CreatesThenUpdatesInPlace(t *testing.T) {
	f := newTestProfileService(t)
	ctx := context.Background()
	user := f.users.seed("Ada", "ada@example.com")

	created, err := f.svc.Upsert(ctx, user.ID, ProfileInput{
		Status:   "Developer",
		Skills:   " go, sql ,, docker ",
		Company:  "Acme",
		Twitter:  "https://twitter.com/ada",
		LinkedIn: "https://linkedin.com/in/ada",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql", "docker"}, created.Skills)
	assert.Equal(t, "Acme", created.Company)
	assert.Equal(t, map[string]string{
		model.SocialTwitter:  "https://twitter.com/ada",
		model.SocialLinkedIn: "https://linkedin.com/in/ada",
	}, created.Social)

	updated, err := f.svc.Upsert(ctx, user.ID, ProfileInput{
		Status:    "Senior Developer",
		Skills:    "go",
		Bio:       "hello",
		Instagram: "https://instagram.com/ada",
	})
	require.NoError(t, err)

	assert.Len(t, f.profiles.byUser, 1, "upsert must never create a second profile")
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Senior Developer", updated.Status)
	assert.Equal(t, []string{"go"}, updated.Skills)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "Acme", updated.Company, "omitted fields keep their value")
	assert.Equal(t, "https://twitter.com/ada", updated.Social[model.SocialTwitter])
	assert.Equal(t, "https://instagram.com/ada", updated.Social[model.SocialInstagram])
}

func TestUpsert_RequiresStatusAndSkills(t *testing.T) {
	f := newTestProfileService(t)
	user := f.users.seed("Ada", "ada@example.com")

	_, err := f.svc.Upsert(context.Background(), user.ID, ProfileInput{Status: "  "})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "Status is required", appErr.Fields[0].Message)
	assert.Equal(t, "Skills is required", appErr.Fields[1].Message)
	assert.Empty(t, f.profiles.byUser)
}

func TestGetMine(t *testing.T) {
	f := newTestProfileService(t)
	user := f.users.seed("Ada", "ada@example.com")

	_, err := f.svc.GetMine(context.Background(), user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Upsert(context.Background(), user.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)

	p, err := f.svc.GetMine(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dev", p.Status)
}

func TestGetByUser(t *testing.T) {
	f := newTestProfileService(t)
	user := f.users.seed("Ada", "ada@example.com")
	other := f.users.seed("Bob", "bob@example.com")
	_, err := f.svc.Upsert(context.Background(), user.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)

	p, err := f.svc.GetByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.User.ID)

	tests := []struct {
		name string
		id   string
	}{
		{"malformed id", "not-an-id"},
		{"empty id", ""},
		{"user without profile", other.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetByUser(context.Background(), tt.id)
			require.ErrorIs(t, err, apperror.ErrNotFound)
			assert.Equal(t, "Profile not found", err.Error())
		})
	}
}

func TestList(t *testing.T) {
	f := newTestProfileService(t)

	profiles, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)

	for _, email := range []string{"a@x.com", "b@x.com"} {
		u := f.users.seed("u", email)
		_, err := f.svc.Upsert(context.Background(), u.ID, ProfileInput{Status: "Dev", Skills: "go"})
		require.NoError(t, err)
	}

	profiles, err = f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestDeleteMine_CascadesToPostsAndUser(t *testing.T) {
	f := newTestProfileService(t)
	ctx := context.Background()
	ada := f.users.seed("Ada", "ada@example.com")
	bob := f.users.seed("Bob", "bob@example.com")

	_, err := f.svc.Upsert(ctx, ada.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)
	require.NoError(t, f.posts.CreatePost(ctx, &model.Post{User: ada.ID, Title: "a"}))
	require.NoError(t, f.posts.CreatePost(ctx, &model.Post{User: bob.ID, Title: "b"}))

	require.NoError(t, f.svc.DeleteMine(ctx, ada.ID))

	assert.NotContains(t, f.users.users, ada.ID)
	assert.Contains(t, f.users.users, bob.ID)
	assert.NotContains(t, f.profiles.byUser, ada.ID)

	remaining, err := f.posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, bob.ID, remaining[0].User)
}

func TestUpsert_DeletedAccountCannotCreateProfile(t *testing.T) {
	f := newTestProfileService(t)
	ctx := context.Background()
	ada := f.users.seed("Ada", "ada@example.com")

	_, err := f.svc.Upsert(ctx, ada.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteMine(ctx, ada.ID))

	_, err = f.svc.Upsert(ctx, ada.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "User not found", err.Error())
	assert.Empty(t, f.profiles.byUser, "no profile may exist without its owner")
}

// raceProfileRepo reports no profile on the first update and, before
// returning, lets a competing request create one.
type raceProfileRepo struct {
	*fakeProfileRepo
	raced bool
}

func (r *raceProfileRepo) UpdateProfile(ctx context.Context, userID string, fn repository.ProfileMutator) (*model.Profile, error) {
	if !r.raced {
		r.raced = true
		_ = r.fakeProfileRepo.CreateProfile(ctx, &model.Profile{
			User:   model.UserSummary{ID: userID},
			Status: "Other",
			Skills: []string{"rust"},
		})
		return nil, apperror.NotFoundMsg("There is no profile for this user")
	}
	return r.fakeProfileRepo.UpdateProfile(ctx, userID, fn)
}

func TestUpsert_ConcurrentFirstUpsertUpdatesInstead(t *testing.T) {
	users := newFakeUserRepo()
	profiles := &raceProfileRepo{fakeProfileRepo: newFakeProfileRepo()}
	svc := NewProfileService(profiles, newFakePostRepo(), users, testValidator(t), testLogger())
	ada := users.seed("Ada", "ada@example.com")

	p, err := svc.Upsert(context.Background(), ada.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)
	assert.Equal(t, "Dev", p.Status)
	assert.Equal(t, []string{"go"}, p.Skills)
	assert.Len(t, profiles.byUser, 1)
}

func TestAddAndRemoveExperience(t *testing.T) {
	f := newTestProfileService(t)
	ctx := context.Background()
	user := f.users.seed("Ada", "ada@example.com")
	_, err := f.svc.Upsert(ctx, user.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)

	p, err := f.svc.AddExperience(ctx, user.ID, ExperienceInput{Title: "Junior", Company: "Acme", From: "2019-01-01", To: "2020-06-30"})
	require.NoError(t, err)
	p, err = f.svc.AddExperience(ctx, user.ID, ExperienceInput{Title: "Senior", Company: "Acme", From: "2020-07-01T00:00:00Z", Current: true})
	require.NoError(t, err)

	require.Len(t, p.Experience, 2)
	assert.Equal(t, "Senior", p.Experience[0].Title, "new entries are prepended")
	assert.Nil(t, p.Experience[0].To)
	require.NotNil(t, p.Experience[1].To)
	assert.Equal(t, time.Date(2020, 6, 30, 0, 0, 0, 0, time.UTC), *p.Experience[1].To)
	assert.NotEqual(t, p.Experience[0].ID, p.Experience[1].ID)

	// Unknown id: silent no-op.
	p, err = f.svc.RemoveExperience(ctx, user.ID, "missing")
	require.NoError(t, err)
	assert.Len(t, p.Experience, 2)

	juniorID := p.Experience[1].ID
	p, err = f.svc.RemoveExperience(ctx, user.ID, juniorID)
	require.NoError(t, err)
	require.Len(t, p.Experience, 1)
	assert.Equal(t, "Senior", p.Experience[0].Title)
}

func TestAddExperience_Validation(t *testing.T) {
	f := newTestProfileService(t)
	user := f.users.seed("Ada", "ada@example.com")
	_, err := f.svc.Upsert(context.Background(), user.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)

	_, err = f.svc.AddExperience(context.Background(), user.ID, ExperienceInput{Title: "Dev"})
	require.ErrorIs(t, err, apperror.ErrValidation)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Fields, 2)

	_, err = f.svc.AddExperience(context.Background(), user.ID, ExperienceInput{Title: "Dev", Company: "Acme", From: "last tuesday"})
	require.ErrorIs(t, err, apperror.ErrValidation)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "from", appErr.Field)
}

func TestAddExperience_WithoutProfile(t *testing.T) {
	f := newTestProfileService(t)
	user := f.users.seed("Ada", "ada@example.com")

	_, err := f.svc.AddExperience(context.Background(), user.ID, ExperienceInput{Title: "Dev", Company: "Acme", From: "2020-01-01"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAddAndRemoveEducation(t *testing.T) {
	f := newTestProfileService(t)
	ctx := context.Background()
	user := f.users.seed("Ada", "ada@example.com")
	_, err := f.svc.Upsert(ctx, user.ID, ProfileInput{Status: "Dev", Skills: "go"})
	require.NoError(t, err)

	_, err = f.svc.AddEducation(ctx, user.ID, EducationInput{School: "MIT"})
	require.ErrorIs(t, err, apperror.ErrValidation)

	p, err := f.svc.AddEducation(ctx, user.ID, EducationInput{School: "MIT", Degree: "BSc", FieldOfStudy: "CS", From: "2010-09-01"})
	require.NoError(t, err)
	require.Len(t, p.Education, 1)
	assert.Equal(t, "CS", p.Education[0].FieldOfStudy)

	p, err = f.svc.RemoveEducation(ctx, user.ID, "missing")
	require.NoError(t, err)
	assert.Len(t, p.Education, 1)

	p, err = f.svc.RemoveEducation(ctx, user.ID, p.Education[0].ID)
	require.NoError(t, err)
	assert.Empty(t, p.Education)
}
