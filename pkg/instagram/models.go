package instagram

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"igosint/pkg/session"
)

// pk accepts identifiers sent either as JSON numbers or strings
type pk string

func (p *pk) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	*p = pk(data)
	return nil
}

type apiUser struct {
	PK            pk     `json:"pk"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
}

func (u apiUser) toUser() session.User {
	return session.User{
		PK:            string(u.PK),
		Username:      u.Username,
		FullName:      u.FullName,
		ProfilePicURL: u.ProfilePicURL,
		IsPrivate:     u.IsPrivate,
		IsVerified:    u.IsVerified,
	}
}

func toUsers(in []apiUser) []session.User {
	out := make([]session.User, 0, len(in))
	for _, u := range in {
		out = append(out, u.toUser())
	}
	return out
}

type apiUserInfo struct {
	apiUser
	Biography           string     `json:"biography"`
	ExternalURL         string     `json:"external_url"`
	Category            string     `json:"category"`
	MediaCount          int        `json:"media_count"`
	FollowerCount       int        `json:"follower_count"`
	FollowingCount      int        `json:"following_count"`
	IsBusiness          bool       `json:"is_business"`
	PublicEmail         string     `json:"public_email"`
	ContactPhone        string     `json:"contact_phone_number"`
	City                string     `json:"city_name"`
	HDProfilePicURLInfo versionURL `json:"hd_profile_pic_url_info"`
}

func (u apiUserInfo) toUserInfo() *session.UserInfo {
	return &session.UserInfo{
		User:            u.toUser(),
		Biography:       u.Biography,
		ExternalURL:     u.ExternalURL,
		Category:        u.Category,
		MediaCount:      u.MediaCount,
		FollowerCount:   u.FollowerCount,
		FollowingCount:  u.FollowingCount,
		IsBusiness:      u.IsBusiness,
		PublicEmail:     u.PublicEmail,
		ContactPhone:    u.ContactPhone,
		City:            u.City,
		ProfilePicURLHD: u.HDProfilePicURLInfo.URL,
	}
}

type versionURL struct {
	URL string `json:"url"`
}

type candidates struct {
	Candidates []versionURL `json:"candidates"`
}

func (c candidates) best() string {
	if len(c.Candidates) == 0 {
		return ""
	}
	return c.Candidates[0].URL
}

type videoVersion = versionURL

func bestVideo(v []videoVersion) string {
	if len(v) == 0 {
		return ""
	}
	return v[0].URL
}

type apiResource struct {
	PK             pk             `json:"pk"`
	MediaType      int            `json:"media_type"`
	ImageVersions2 candidates     `json:"image_versions2"`
	VideoVersions  []videoVersion `json:"video_versions"`
}

type apiLocation struct {
	PK      pk       `json:"pk"`
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

type apiCaption struct {
	Text string `json:"text"`
}

type apiUsertags struct {
	In []struct {
		User     apiUser   `json:"user"`
		Position []float64 `json:"position"`
	} `json:"in"`
}

type apiMedia struct {
	PK             pk             `json:"pk"`
	ID             string         `json:"id"`
	Code           string         `json:"code"`
	TakenAt        int64          `json:"taken_at"`
	MediaType      int            `json:"media_type"`
	User           apiUser        `json:"user"`
	Caption        *apiCaption    `json:"caption"`
	LikeCount      int            `json:"like_count"`
	CommentCount   int            `json:"comment_count"`
	ViewCount      int            `json:"view_count"`
	PlayCount      int            `json:"play_count"`
	HasLiked       bool           `json:"has_liked"`
	ImageVersions2 candidates     `json:"image_versions2"`
	VideoVersions  []videoVersion `json:"video_versions"`
	Location       *apiLocation   `json:"location"`
	Usertags       apiUsertags    `json:"usertags"`
	CarouselMedia  []apiResource  `json:"carousel_media"`
}

func (m apiMedia) toMedia() session.Media {
	out := session.Media{
		PK:           string(m.PK),
		ID:           m.ID,
		Code:         m.Code,
		TakenAt:      time.Unix(m.TakenAt, 0).UTC(),
		MediaType:    session.MediaType(m.MediaType),
		User:         m.User.toUser(),
		LikeCount:    m.LikeCount,
		CommentCount: m.CommentCount,
		ViewCount:    m.ViewCount,
		HasLiked:     m.HasLiked,
		ThumbnailURL: m.ImageVersions2.best(),
		VideoURL:     bestVideo(m.VideoVersions),
	}
	if out.ViewCount == 0 {
		out.ViewCount = m.PlayCount
	}
	if out.ID == "" {
		out.ID = out.PK
	}
	if m.Caption != nil {
		out.CaptionText = m.Caption.Text
	}
	if m.Location != nil {
		out.Location = &session.Location{
			PK:      string(m.Location.PK),
			Name:    m.Location.Name,
			Address: m.Location.Address,
			Lat:     m.Location.Lat,
			Lng:     m.Location.Lng,
		}
	}
	for _, tag := range m.Usertags.In {
		ut := session.Usertag{User: tag.User.toUser()}
		if len(tag.Position) == 2 {
			ut.X, ut.Y = tag.Position[0], tag.Position[1]
		}
		out.Usertags = append(out.Usertags, ut)
	}
	for _, r := range m.CarouselMedia {
		out.Resources = append(out.Resources, session.Resource{
			PK:           string(r.PK),
			MediaType:    session.MediaType(r.MediaType),
			ThumbnailURL: r.ImageVersions2.best(),
			VideoURL:     bestVideo(r.VideoVersions),
		})
	}
	return out
}

func toMedias(in []apiMedia) []session.Media {
	out := make([]session.Media, 0, len(in))
	for _, m := range in {
		out = append(out, m.toMedia())
	}
	return out
}

type apiComment struct {
	PK           pk      `json:"pk"`
	Text         string  `json:"text"`
	User         apiUser `json:"user"`
	CreatedAtUTC int64   `json:"created_at_utc"`
	LikeCount    int     `json:"comment_like_count"`
}

func (c apiComment) toComment() session.Comment {
	return session.Comment{
		PK:        string(c.PK),
		Text:      c.Text,
		User:      c.User.toUser(),
		CreatedAt: time.Unix(c.CreatedAtUTC, 0).UTC(),
		LikeCount: c.LikeCount,
	}
}

type apiHashtag struct {
	ID            pk     `json:"id"`
	Name          string `json:"name"`
	MediaCount    int    `json:"media_count"`
	ProfilePicURL string `json:"profile_pic_url"`
}

type apiReel struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Items      []apiMedia `json:"items"`
	CoverMedia struct {
		CroppedImageVersion versionURL `json:"cropped_image_version"`
	} `json:"cover_media"`
}

// highlightPrefix prefixes highlight reel ids
const highlightPrefix = "highlight:"

func (r apiReel) toHighlight() session.Highlight {
	return session.Highlight{
		PK:       strings.TrimPrefix(r.ID, highlightPrefix),
		Title:    r.Title,
		CoverURL: r.CoverMedia.CroppedImageVersion.URL,
		Items:    toMedias(r.Items),
	}
}

type apiFriendship struct {
	Following  bool `json:"following"`
	FollowedBy bool `json:"followed_by"`
	IsPrivate  bool `json:"is_private"`
	Blocking   bool `json:"blocking"`
}

// cursor reads next_max_id values sent as strings or numbers
type cursor string

func (c *cursor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = cursor(n.String())
		return nil
	}
	*c = ""
	return nil
}
