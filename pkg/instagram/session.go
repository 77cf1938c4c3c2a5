package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "igosint/pkg/errors"
	"igosint/pkg/session"
)

var _ session.Session = (*Client)(nil)

type loginResponse struct {
	LoggedInUser apiUser `json:"logged_in_user"`
}

// Login authenticates with a password, or completes a pending two-factor
// challenge when code is set
func (c *Client) Login(ctx context.Context, username, password, code string) error {
	c.mu.RLock()
	pending := c.state.twoFactorID
	c.mu.RUnlock()

	if code != "" && pending != "" {
		return c.twoFactorLogin(ctx, username, code, pending)
	}

	err := c.passwordLogin(ctx, username, password)
	if code != "" && errors.Is(err, session.ErrTwoFactorRequired) {
		c.mu.RLock()
		pending = c.state.twoFactorID
		c.mu.RUnlock()
		return c.twoFactorLogin(ctx, username, code, pending)
	}
	return err
}

func (c *Client) passwordLogin(ctx context.Context, username, password string) error {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()

	payload := map[string]string{
		"username":            username,
		"enc_password":        fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", time.Now().Unix(), password),
		"phone_id":            st.PhoneID,
		"guid":                st.UUID,
		"device_id":           st.DeviceID,
		"adid":                st.AdvertisingID,
		"google_tokens":       "[]",
		"login_attempt_count": "0",
	}
	return c.login(ctx, loginPath(), payload)
}

func (c *Client) twoFactorLogin(ctx context.Context, username, code, identifier string) error {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()

	payload := map[string]string{
		"username":              username,
		"verification_code":     strings.TrimSpace(code),
		"two_factor_identifier": identifier,
		"phone_id":              st.PhoneID,
		"guid":                  st.UUID,
		"device_id":             st.DeviceID,
		"trust_this_device":     "1",
		"verification_method":   "3",
	}
	return c.login(ctx, twoFactorLoginPath(), payload)
}

// login posts a signed payload. Login requests are not retried.
func (c *Client) login(ctx context.Context, path string, payload map[string]string) error {
	if err := c.limits.Wait(ctx, EndpointLogin); err != nil {
		return err
	}

	signed, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode login payload: %w", err)
	}
	form := url.Values{}
	form.Set("signed_body", "SIGNATURE."+string(signed))

	resp, body, err := c.send(ctx, path, nil, form)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var st apiStatus
		_ = json.Unmarshal(body, &st)
		switch {
		case st.TwoFactorRequired:
			c.mu.Lock()
			c.state.twoFactorID = st.TwoFactorInfo.Identifier
			c.mu.Unlock()
			return session.ErrTwoFactorRequired
		case isBadCode(st):
			return fmt.Errorf("%w: %s", session.ErrBadVerificationCode, st.Message)
		}
		return c.checkResponseStatus(resp, body)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return &errs.Error{Type: errs.ErrorTypeParsing, Message: err.Error(), Code: resp.StatusCode, Response: preview(body)}
	}

	c.mu.Lock()
	c.state.UserID = string(lr.LoggedInUser.PK)
	c.state.Username = lr.LoggedInUser.Username
	c.state.twoFactorID = ""
	c.mu.Unlock()
	return nil
}

func isBadCode(st apiStatus) bool {
	switch st.ErrorType {
	case "sms_code_validation_code_invalid", "invalid_verification_code", "invalid_verficaition_code":
		return true
	}
	return strings.Contains(strings.ToLower(st.Message), "security code")
}

// UserIDFromUsername resolves a username to its pk
func (c *Client) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	var r struct {
		User apiUser `json:"user"`
	}
	if err := c.call(ctx, EndpointUserInfo, usernameInfoPath(username), nil, nil, &r); err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeNotFound {
			return "", fmt.Errorf("%s: %w", username, session.ErrUserNotFound)
		}
		return "", err
	}
	if r.User.PK == "" {
		return "", fmt.Errorf("%s: %w", username, session.ErrUserNotFound)
	}
	return string(r.User.PK), nil
}

func (c *Client) UserInfo(ctx context.Context, pk string) (*session.UserInfo, error) {
	var r struct {
		User apiUserInfo `json:"user"`
	}
	if err := c.call(ctx, EndpointUserInfo, userInfoPath(pk), nil, nil, &r); err != nil {
		if errs.TypeOf(err) == errs.ErrorTypeNotFound {
			return nil, fmt.Errorf("%s: %w", pk, session.ErrUserNotFound)
		}
		return nil, err
	}
	return r.User.toUserInfo(), nil
}

func (c *Client) Friendship(ctx context.Context, pk string) (*session.Friendship, error) {
	var r apiFriendship
	if err := c.call(ctx, EndpointFriendship, friendshipPath(pk), nil, nil, &r); err != nil {
		return nil, err
	}
	return &session.Friendship{
		Following:  r.Following,
		FollowedBy: r.FollowedBy,
		IsPrivate:  r.IsPrivate,
		Blocking:   r.Blocking,
	}, nil
}

type usersPage struct {
	Users     []apiUser `json:"users"`
	NextMaxID cursor    `json:"next_max_id"`
}

func (c *Client) Followers(ctx context.Context, pk string) ([]session.User, error) {
	users, err := paginate(ctx, c, EndpointFollowers, followersPath(pk), pageQuery(), "max_id",
		func(p *usersPage) ([]apiUser, string) { return p.Users, string(p.NextMaxID) })
	if err != nil {
		return nil, err
	}
	return toUsers(users), nil
}

func (c *Client) Following(ctx context.Context, pk string) ([]session.User, error) {
	users, err := paginate(ctx, c, EndpointFollowing, followingPath(pk), pageQuery(), "max_id",
		func(p *usersPage) ([]apiUser, string) { return p.Users, string(p.NextMaxID) })
	if err != nil {
		return nil, err
	}
	return toUsers(users), nil
}

type feedPage struct {
	Items         []apiMedia `json:"items"`
	NextMaxID     cursor     `json:"next_max_id"`
	MoreAvailable bool       `json:"more_available"`
}

func (p *feedPage) next() string {
	if !p.MoreAvailable {
		return ""
	}
	return string(p.NextMaxID)
}

func (c *Client) UserMedias(ctx context.Context, pk string) ([]session.Media, error) {
	items, err := paginate(ctx, c, EndpointUserFeed, userFeedPath(pk), pageQuery(), "max_id",
		func(p *feedPage) ([]apiMedia, string) { return p.Items, p.next() })
	if err != nil {
		return nil, err
	}
	return toMedias(items), nil
}

func (c *Client) UsertagMedias(ctx context.Context, pk string) ([]session.Media, error) {
	items, err := paginate(ctx, c, EndpointUsertags, usertagsPath(pk), pageQuery(), "max_id",
		func(p *feedPage) ([]apiMedia, string) { return p.Items, p.next() })
	if err != nil {
		return nil, err
	}
	return toMedias(items), nil
}

// UserStories returns the current story items; an account without a reel
// has none
func (c *Client) UserStories(ctx context.Context, pk string) ([]session.Media, error) {
	var r struct {
		Reel *apiReel `json:"reel"`
	}
	if err := c.call(ctx, EndpointStories, storyPath(pk), nil, nil, &r); err != nil {
		return nil, err
	}
	if r.Reel == nil {
		return nil, nil
	}
	return toMedias(r.Reel.Items), nil
}

func (c *Client) Highlights(ctx context.Context, pk string) ([]session.Highlight, error) {
	var r struct {
		Tray []apiReel `json:"tray"`
	}
	if err := c.call(ctx, EndpointHighlights, highlightsTrayPath(pk), nil, nil, &r); err != nil {
		return nil, err
	}
	out := make([]session.Highlight, 0, len(r.Tray))
	for _, reel := range r.Tray {
		h := reel.toHighlight()
		h.Items = nil
		out = append(out, h)
	}
	return out, nil
}

func (c *Client) HighlightInfo(ctx context.Context, highlightPK string) (*session.Highlight, error) {
	id := highlightPrefix + strings.TrimPrefix(highlightPK, highlightPrefix)
	q := url.Values{}
	q.Set("reel_ids", id)

	var r struct {
		Reels map[string]apiReel `json:"reels"`
	}
	if err := c.call(ctx, EndpointReelsMedia, reelsMediaPath(), q, nil, &r); err != nil {
		return nil, err
	}
	reel, ok := r.Reels[id]
	if !ok {
		return nil, &errs.Error{Type: errs.ErrorTypeNotFound, Message: "highlight " + highlightPK + " not found"}
	}
	h := reel.toHighlight()
	return &h, nil
}

func (c *Client) MediaComments(ctx context.Context, mediaID string) ([]session.Comment, error) {
	q := url.Values{}
	q.Set("can_support_threading", "true")

	type commentsPage struct {
		Comments  []apiComment `json:"comments"`
		NextMinID cursor       `json:"next_min_id"`
	}
	comments, err := paginate(ctx, c, EndpointComments, commentsPath(mediaID), q, "min_id",
		func(p *commentsPage) ([]apiComment, string) { return p.Comments, string(p.NextMinID) })
	if err != nil {
		return nil, err
	}
	out := make([]session.Comment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, cm.toComment())
	}
	return out, nil
}

func (c *Client) MediaLikers(ctx context.Context, mediaID string) ([]session.User, error) {
	var r usersPage
	if err := c.call(ctx, EndpointLikers, likersPath(mediaID), nil, nil, &r); err != nil {
		return nil, err
	}
	return toUsers(r.Users), nil
}

func (c *Client) HashtagInfo(ctx context.Context, name string) (*session.Hashtag, error) {
	var r apiHashtag
	if err := c.call(ctx, EndpointHashtagInfo, hashtagInfoPath(strings.TrimPrefix(name, "#")), nil, nil, &r); err != nil {
		return nil, err
	}
	return &session.Hashtag{
		ID:            string(r.ID),
		Name:          r.Name,
		MediaCount:    r.MediaCount,
		ProfilePicURL: r.ProfilePicURL,
	}, nil
}

func pageQuery() url.Values {
	q := url.Values{}
	q.Set("count", strconv.Itoa(DefaultPageSize))
	return q
}

// paginate follows the cursor named param until the server stops returning
// one, or returns a cursor it already sent
func paginate[P any, T any](ctx context.Context, c *Client, endpoint, path string, query url.Values, param string, extract func(*P) ([]T, string)) ([]T, error) {
	var all []T
	seen := make(map[string]bool)
	next := ""

	for page := 1; ; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		if next != "" {
			q.Set(param, next)
		}

		var p P
		if err := c.call(ctx, endpoint, path, q, nil, &p); err != nil {
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", endpoint, page, err)
		}
		items, cur := extract(&p)
		all = append(all, items...)

		if cur == "" || seen[cur] {
			return all, nil
		}
		seen[cur] = true
		next = cur
	}
}
