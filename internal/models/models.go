package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// FlexID is an identifier that the remote service serialises sometimes as a
// JSON string and sometimes as a JSON number.
type FlexID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string { return string(id) }

// TokenPair groups the bearer credentials issued to an authenticated user.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Empty reports whether no credentials are present.
func (t TokenPair) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// User represents an account within the Plume service. The social counters
// are view-level aggregates computed server-side; absent fields decode to
// zero values.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PostsCount     int    `json:"postsCount"`
	LikesCount     int    `json:"likesCount"`
	FollowersCount int    `json:"followersCount"`
	Likes          []User `json:"likes,omitempty"`
	Followers      []User `json:"followers,omitempty"`
}

// LikedBy reports whether the given viewer appears in the user's embedded
// liker list.
func (u User) LikedBy(viewerID string) bool {
	for _, liker := range u.Likes {
		if liker.ID == viewerID {
			return true
		}
	}
	return false
}

// FollowedBy reports whether the given viewer appears in the user's embedded
// follower list.
func (u User) FollowedBy(viewerID string) bool {
	for _, follower := range u.Followers {
		if follower.ID == viewerID {
			return true
		}
	}
	return false
}

// Tag is a free-form label attached to a post. The server addresses the
// label under a "tags" key.
type Tag struct {
	ID    int64  `json:"id,omitempty"`
	Label string `json:"tags"`
}

// NormalizeTags lowercases labels, trims whitespace, and drops duplicates
// and empties while preserving first-seen order.
func NormalizeTags(labels []string) []Tag {
	seen := make(map[string]struct{}, len(labels))
	tags := make([]Tag, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		tags = append(tags, Tag{Label: label})
	}
	return tags
}

// MediaType identifies what kind of content a media attachment references.
// The set is closed; the type is decided once at attachment time and never
// re-derived from content inspection.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// TypeID returns the numeric identifier the remote service assigns to this
// media type.
func (t MediaType) TypeID() int {
	switch t {
	case MediaImage:
		return 1
	case MediaVideo:
		return 2
	case MediaAudio:
		return 3
	case MediaDocument:
		return 4
	}
	return 0
}

// MediaTypeRef mirrors the service's nested media type record.
type MediaTypeRef struct {
	ID   int       `json:"id,omitempty"`
	Name MediaType `json:"type_"`
}

// Media is a reference to a byte source attached to a post.
type Media struct {
	ID     int64        `json:"id,omitempty"`
	Path   string       `json:"path_name"`
	TypeID int          `json:"type_id"`
	Type   MediaTypeRef `json:"type_"`
}

// NewMedia builds an attachment referencing the provided URI with a fixed type.
func NewMedia(path string, t MediaType) Media {
	return Media{
		Path:   path,
		TypeID: t.TypeID(),
		Type:   MediaTypeRef{ID: t.TypeID(), Name: t},
	}
}

// Post is a feed entry. The id is server-assigned; a local draft has none.
// CreatedAt is set by the client at construction time.
type Post struct {
	ID            FlexID    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	UserID        string    `json:"user_id"`
	User          *User     `json:"user,omitempty"`
	Tags          []Tag     `json:"tags,omitempty"`
	Medias        []Media   `json:"medias,omitempty"`
	CommentsCount int       `json:"commentsCount"`
	Likes         []User    `json:"likes,omitempty"`
	LikesCount    int       `json:"likesCount"`
	Views         []User    `json:"views,omitempty"`
	ViewsCount    int       `json:"viewsCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LikedBy reports whether the given viewer appears in the post's embedded
// liker list.
func (p Post) LikedBy(viewerID string) bool {
	for _, liker := range p.Likes {
		if liker.ID == viewerID {
			return true
		}
	}
	return false
}

// Comment is an entry in a post's discussion thread.
type Comment struct {
	ID        FlexID    `json:"id"`
	Content   string    `json:"content"`
	PostID    FlexID    `json:"post_id"`
	UserID    string    `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stat is one bucket of the posting-activity histogram.
type Stat struct {
	Day   string `json:"day"`
	Count int    `json:"num"`
}
