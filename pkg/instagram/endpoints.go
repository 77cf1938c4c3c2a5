package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint names key the per-endpoint rate limiters
const (
	EndpointLogin       = "login"
	EndpointUserInfo    = "user_info"
	EndpointFriendship  = "friendship"
	EndpointFollowers   = "followers"
	EndpointFollowing   = "following"
	EndpointUserFeed    = "user_feed"
	EndpointStories     = "stories"
	EndpointUsertags    = "usertags"
	EndpointHighlights  = "highlights"
	EndpointReelsMedia  = "reels_media"
	EndpointComments    = "comments"
	EndpointLikers      = "likers"
	EndpointHashtagInfo = "hashtag_info"
)

// DefaultPageSize is the count requested per listing page
const DefaultPageSize = 100

func loginPath() string { return "accounts/login/" }
func twoFactorLoginPath() string { return "accounts/two_factor_login/" }

func usernameInfoPath(username string) string {
	return fmt.Sprintf("users/%s/usernameinfo/", url.PathEscape(username))
}

func userInfoPath(pk string) string { return fmt.Sprintf("users/%s/info/", pk) }
func friendshipPath(pk string) string { return fmt.Sprintf("friendships/show/%s/", pk) }
func followersPath(pk string) string { return fmt.Sprintf("friendships/%s/followers/", pk) }
func followingPath(pk string) string { return fmt.Sprintf("friendships/%s/following/", pk) }
func userFeedPath(pk string) string { return fmt.Sprintf("feed/user/%s/", pk) }
func storyPath(pk string) string { return fmt.Sprintf("feed/user/%s/story/", pk) }
func usertagsPath(pk string) string { return fmt.Sprintf("usertags/%s/feed/", pk) }
func highlightsTrayPath(pk string) string { return fmt.Sprintf("highlights/%s/highlights_tray/", pk) }
func reelsMediaPath() string { return "feed/reels_media/" }
func commentsPath(mediaID string) string { return fmt.Sprintf("media/%s/comments/", mediaID) }
func likersPath(mediaID string) string { return fmt.Sprintf("media/%s/likers/", mediaID) }
func hashtagInfoPath(name string) string { return fmt.Sprintf("tags/%s/info/", url.PathEscape(name)) }

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// letters, numbers, periods, and underscores
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, a profile URL prefix and trailing
// slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://www.instagram.com/", "https://instagram.com/", "@"} {
		username = strings.TrimPrefix(username, prefix)
	}
	return strings.TrimRight(username, "/ ")
}
