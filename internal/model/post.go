package model

import "time"

// Post is a user's post. Name and AvatarURL are a snapshot of the author
// taken at creation time, not a live reference.
type Post struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
	Likes     []Like    `json:"likes"`
	Comments  []Comment `json:"comments"`
	Date      time.Time `json:"date"`
}

// Like records one user's like. A user appears at most once in Post.Likes.
type Like struct {
	User string `json:"user"`
}

// Comment is newest-first in Post.Comments; like Post it snapshots the author.
type Comment struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl"`
	Date      time.Time `json:"date"`
}

// LikedBy reports the index of userID in Likes, or -1.
func (p *Post) LikedBy(userID string) int {
	for i, l := range p.Likes {
		if l.User == userID {
			return i
		}
	}
	return -1
}

// CommentIndex reports the index of the comment with the given ID, or -1.
func (p *Post) CommentIndex(commentID string) int {
	for i, c := range p.Comments {
		if c.ID == commentID {
			return i
		}
	}
	return -1
}
