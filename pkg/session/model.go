package session

import "time"

// User is the short profile returned by listings
type User struct {
	PK            string `json:"pk"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
}

// UserInfo is the full profile of one account
type UserInfo struct {
	User
	Biography       string `json:"biography"`
	ExternalURL     string `json:"external_url"`
	Category        string `json:"category"`
	MediaCount      int    `json:"media_count"`
	FollowerCount   int    `json:"follower_count"`
	FollowingCount  int    `json:"following_count"`
	IsBusiness      bool   `json:"is_business"`
	PublicEmail     string `json:"public_email"`
	ContactPhone    string `json:"contact_phone_number"`
	City            string `json:"city_name"`
	ProfilePicURLHD string `json:"profile_pic_url_hd"`
}

// MediaType enumerates post kinds
type MediaType int

const (
	MediaPhoto MediaType = 1
	MediaVideo MediaType = 2
	MediaAlbum MediaType = 8
)

func (t MediaType) String() string {
	switch t {
	case MediaPhoto:
		return "photo"
	case MediaVideo:
		return "video"
	case MediaAlbum:
		return "album"
	default:
		return "unknown"
	}
}

// Resource is one element of an album
type Resource struct {
	PK           string    `json:"pk"`
	MediaType    MediaType `json:"media_type"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
}

// Location is a tagged place
type Location struct {
	PK      string   `json:"pk"`
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (l *Location) HasCoordinates() bool {
	return l != nil && l.Lat != nil && l.Lng != nil
}

// Usertag marks a user on a post
type Usertag struct {
	User User    `json:"user"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Media is a post, story item or highlight item
type Media struct {
	PK           string     `json:"pk"`
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	TakenAt      time.Time  `json:"taken_at"`
	MediaType    MediaType  `json:"media_type"`
	User         User       `json:"user"`
	CaptionText  string     `json:"caption_text"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	ViewCount    int        `json:"view_count"`
	HasLiked     bool       `json:"has_liked"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	VideoURL     string     `json:"video_url,omitempty"`
	Location     *Location  `json:"location"`
	Usertags     []Usertag  `json:"usertags"`
	Resources    []Resource `json:"resources"`
}

// Comment on a post
type Comment struct {
	PK        string    `json:"pk"`
	Text      string    `json:"text"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at_utc"`
	LikeCount int       `json:"like_count"`
}

// Hashtag describes a tag page
type Hashtag struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MediaCount    int    `json:"media_count"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// Highlight is a story highlight folder. Items is only populated by
// HighlightInfo.
type Highlight struct {
	PK       string  `json:"pk"`
	Title    string  `json:"title"`
	CoverURL string  `json:"cover_url"`
	Items    []Media `json:"items"`
}

// Friendship is the relation between the logged-in account and a user
type Friendship struct {
	Following  bool `json:"following"`
	FollowedBy bool `json:"followed_by"`
	IsPrivate  bool `json:"is_private"`
	Blocking   bool `json:"blocking"`
}
