package model

import "time"

// Social platform keys accepted on a profile.
const (
	SocialYouTube   = "youtube"
	SocialTwitter   = "twitter"
	SocialFacebook  = "facebook"
	SocialLinkedIn  = "linkedin"
	SocialInstagram = "instagram"
)

// SocialPlatforms lists the fixed set of social keys, in display order.
var SocialPlatforms = []string{SocialYouTube, SocialTwitter, SocialFacebook, SocialLinkedIn, SocialInstagram}

// Profile is a user's developer profile. There is at most one per user.
//
// Experience and Education are ordered most-recent-first: new entries are
// prepended and removed by their ID.
type Profile struct {
	ID             string            `json:"id"`
	User           UserSummary       `json:"user"`
	Handle         string            `json:"handle,omitempty"`
	Company        string            `json:"company,omitempty"`
	Website        string            `json:"website,omitempty"`
	Location       string            `json:"location,omitempty"`
	Status         string            `json:"status"`
	Skills         []string          `json:"skills"`
	Bio            string            `json:"bio,omitempty"`
	GitHubUsername string            `json:"githubUsername,omitempty"`
	Social         map[string]string `json:"social,omitempty"`
	Experience     []Experience      `json:"experience"`
	Education      []Education       `json:"education"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

type Experience struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

type Education struct {
	ID           string     `json:"id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldOfStudy,omitempty"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description,omitempty"`
}
