package service

import (
	"context"
	"errors"
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

// ProfileInput is the payload of POST /api/profile. Every optional field is
// applied only when non-empty; an existing value is never cleared by omission.
type ProfileInput struct {
	Handle         string `json:"handle"`
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Status         string `json:"status" validate:"notblank" msg:"Status is required"`
	Skills         string `json:"skills" validate:"notblank" msg:"Skills is required"`
	Bio            string `json:"bio"`
	GitHubUsername string `json:"githubusername"`

	YouTube   string `json:"youtube"`
	Twitter   string `json:"twitter"`
	Facebook  string `json:"facebook"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
}

// ExperienceInput is the payload of PUT /api/profile/experience.
type ExperienceInput struct {
	Title       string `json:"title" validate:"notblank" msg:"Title is required"`
	Company     string `json:"company" validate:"notblank" msg:"Company is required"`
	Location    string `json:"location"`
	From        string `json:"from" validate:"notblank" msg:"From date is required"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// EducationInput is the payload of PUT /api/profile/education.
type EducationInput struct {
	School       string `json:"school" validate:"notblank" msg:"School is required"`
	Degree       string `json:"degree" validate:"notblank" msg:"Degree is required"`
	FieldOfStudy string `json:"fieldofstudy"`
	From         string `json:"from" validate:"notblank" msg:"From date is required"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

// ProfileService manages profiles and their experience and education lists.
//
//	ProfileHandler → ProfileService → ProfileRepository
//	                                ↘ PostRepository, UserRepository (account deletion)
//
// Every edit of an existing profile goes through UpdateProfile, so list
// insertions and removals are applied to the freshly loaded document and
// two concurrent edits cannot overwrite each other.
type ProfileService struct {
	profiles  repository.ProfileRepository
	posts     repository.PostRepository
	users     repository.UserRepository
	validator *validate.Validator
	logger    *slog.Logger
}

// NewProfileService creates a ProfileService. posts and users are needed
// because deleting a profile deletes the account behind it.
func NewProfileService(
	profiles repository.ProfileRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	validator *validate.Validator,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		posts:     posts,
		users:     users,
		validator: validator,
		logger:    logger,
	}
}

// GetMine returns the caller's profile.
func (s *ProfileService) GetMine(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profiles.GetProfileByUser(ctx, userID)
}

// Upsert creates the caller's profile, or updates it in place if one exists.
// A user never ends up with two profiles.
//
// UPSERT FLOW
//
//  1. The caller's user must still exist. A token outlives the account it was
//     issued for, so an identity alone is not proof of an owner.
//  2. Try an in-place update of the existing document.
//  3. No document yet: create one.
//  4. Creation lost a race with a concurrent first upsert (Conflict): the
//     other request's document now exists, so update that one instead.
func (s *ProfileService) Upsert(ctx context.Context, userID string, in ProfileInput) (*model.Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	if _, err := lookupUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	p, err := s.update(ctx, userID, in)
	if err == nil || !errors.Is(err, apperror.ErrNotFound) {
		return p, err
	}

	p = &model.Profile{User: model.UserSummary{ID: userID}}
	in.applyTo(p)
	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return s.update(ctx, userID, in)
		}
		return nil, fmt.Errorf("service/profile: creating profile: %w", err)
	}

	s.logger.Info("profile created", slog.String("userID", userID), slog.String("profileID", p.ID))

	// Re-read so the response carries the owner's name and avatar.
	return s.profiles.GetProfileByUser(ctx, userID)
}

// update applies in to the caller's existing profile. ErrNotFound is returned
// unwrapped so Upsert can fall through to creation.
func (s *ProfileService) update(ctx context.Context, userID string, in ProfileInput) (*model.Profile, error) {
	p, err := s.profiles.UpdateProfile(ctx, userID, func(p *model.Profile) error {
		in.applyTo(p)
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/profile: updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.String("userID", userID))
	return p, nil
}

// applyTo copies every non-empty field of in onto p.
func (in ProfileInput) applyTo(p *model.Profile) {
	setIf(&p.Handle, in.Handle)
	setIf(&p.Company, in.Company)
	setIf(&p.Website, in.Website)
	setIf(&p.Location, in.Location)
	setIf(&p.Status, in.Status)
	setIf(&p.Bio, in.Bio)
	setIf(&p.GitHubUsername, in.GitHubUsername)

	if strings.TrimSpace(in.Skills) != "" {
		p.Skills = splitSkills(in.Skills)
	}

	social := map[string]string{
		model.SocialYouTube:   in.YouTube,
		model.SocialTwitter:   in.Twitter,
		model.SocialFacebook:  in.Facebook,
		model.SocialLinkedIn:  in.LinkedIn,
		model.SocialInstagram: in.Instagram,
	}
	for _, platform := range model.SocialPlatforms {
		v := strings.TrimSpace(social[platform])
		if v == "" {
			continue
		}
		if p.Social == nil {
			p.Social = make(map[string]string)
		}
		p.Social[platform] = v
	}
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// splitSkills turns "go, sql ,docker" into [go sql docker]. Empty items are dropped.
func splitSkills(raw string) []string {
	parts := strings.Split(raw, ",")
	skills := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// List returns every profile.
func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing profiles: %w", err)
	}
	return profiles, nil
}

// GetByUser returns the profile owned by userID. A malformed id is reported
// as not found, the same as an unknown one.
func (s *ProfileService) GetByUser(ctx context.Context, userID string) (*model.Profile, error) {
	if _, err := xid.FromString(userID); err != nil {
		return nil, apperror.NotFoundMsg("Profile not found")
	}

	p, err := s.profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("Profile not found")
		}
		return nil, err
	}
	return p, nil
}

// DeleteMine removes the caller's posts, profile and user account.
func (s *ProfileService) DeleteMine(ctx context.Context, userID string) error {
	n, err := s.posts.DeletePostsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/profile: deleting posts: %w", err)
	}
	if err := s.profiles.DeleteProfileByUser(ctx, userID); err != nil {
		return fmt.Errorf("service/profile: deleting profile: %w", err)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("service/profile: deleting user: %w", err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.Int64("posts", n),
	)
	return nil
}

// AddExperience prepends an entry to the caller's experience list.
func (s *ProfileService) AddExperience(ctx context.Context, userID string, in ExperienceInput) (*model.Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	from, to, err := parseRange(in.From, in.To)
	if err != nil {
		return nil, err
	}

	exp := model.Experience{
		ID:          xid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Company:     strings.TrimSpace(in.Company),
		Location:    strings.TrimSpace(in.Location),
		From:        from,
		To:          to,
		Current:     in.Current,
		Description: in.Description,
	}

	return s.profiles.UpdateProfile(ctx, userID, func(p *model.Profile) error {
		p.Experience = slices.Insert(p.Experience, 0, exp)
		return nil
	})
}

// RemoveExperience drops the experience entry with id expID. An unknown id
// leaves the list as it was and is not an error.
func (s *ProfileService) RemoveExperience(ctx context.Context, userID, expID string) (*model.Profile, error) {
	return s.profiles.UpdateProfile(ctx, userID, func(p *model.Profile) error {
		if i := slices.IndexFunc(p.Experience, func(e model.Experience) bool { return e.ID == expID }); i >= 0 {
			p.Experience = slices.Delete(p.Experience, i, i+1)
		}
		return nil
	})
}

// AddEducation prepends an entry to the caller's education list.
func (s *ProfileService) AddEducation(ctx context.Context, userID string, in EducationInput) (*model.Profile, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	from, to, err := parseRange(in.From, in.To)
	if err != nil {
		return nil, err
	}

	edu := model.Education{
		ID:           xid.New().String(),
		School:       strings.TrimSpace(in.School),
		Degree:       strings.TrimSpace(in.Degree),
		FieldOfStudy: strings.TrimSpace(in.FieldOfStudy),
		From:         from,
		To:           to,
		Current:      in.Current,
		Description:  in.Description,
	}

	return s.profiles.UpdateProfile(ctx, userID, func(p *model.Profile) error {
		p.Education = slices.Insert(p.Education, 0, edu)
		return nil
	})
}

// RemoveEducation drops the education entry with id eduID. An unknown id
// leaves the list as it was and is not an error.
func (s *ProfileService) RemoveEducation(ctx context.Context, userID, eduID string) (*model.Profile, error) {
	return s.profiles.UpdateProfile(ctx, userID, func(p *model.Profile) error {
		if i := slices.IndexFunc(p.Education, func(e model.Education) bool { return e.ID == eduID }); i >= 0 {
			p.Education = slices.Delete(p.Education, i, i+1)
		}
		return nil
	})
}

// Accepted date formats for from/to: a calendar date or a full timestamp.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperror.ValidationFailed(field, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", field))
}

// parseRange parses a required from date and an optional to date.
func parseRange(fromRaw, toRaw string) (time.Time, *time.Time, error) {
	from, err := parseDate("from", fromRaw)
	if err != nil {
		return time.Time{}, nil, err
	}
	if strings.TrimSpace(toRaw) == "" {
		return from, nil, nil
	}
	to, err := parseDate("to", toRaw)
	if err != nil {
		return time.Time{}, nil, err
	}
	return from, &to, nil
}
