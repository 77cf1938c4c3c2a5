package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Fake is an in-memory Session for tests. Populate the maps, then inject
// failures with Fail.
type Fake struct {
	mu sync.Mutex

	Users          map[string]*UserInfo // by username
	Friendships    map[string]Friendship
	FollowersOf    map[string][]User
	FollowingOf    map[string][]User
	MediasOf       map[string][]Media
	StoriesOf      map[string][]Media
	TaggedIn       map[string][]Media
	HighlightsOf   map[string][]Highlight
	HighlightItems map[string]*Highlight
	Comments       map[string][]Comment
	Likers         map[string][]User
	Hashtags       map[string]*Hashtag
	Files          map[string][]byte

	// LoginErrors are returned by successive Login calls before succeeding
	LoginErrors []error

	errors   map[string]error
	calls    map[string]int
	loggedIn *User
	codes    []string
}

// NewFake creates an empty fake session
func NewFake() *Fake {
	return &Fake{
		Users:          make(map[string]*UserInfo),
		Friendships:    make(map[string]Friendship),
		FollowersOf:    make(map[string][]User),
		FollowingOf:    make(map[string][]User),
		MediasOf:       make(map[string][]Media),
		StoriesOf:      make(map[string][]Media),
		TaggedIn:       make(map[string][]Media),
		HighlightsOf:   make(map[string][]Highlight),
		HighlightItems: make(map[string]*Highlight),
		Comments:       make(map[string][]Comment),
		Likers:         make(map[string][]User),
		Hashtags:       make(map[string]*Hashtag),
		Files:          make(map[string][]byte),
		errors:         make(map[string]error),
		calls:          make(map[string]int),
	}
}

// AddUser registers a user and returns it
func (f *Fake) AddUser(pk, username string) *UserInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &UserInfo{User: User{PK: pk, Username: username, FullName: username}}
	f.Users[username] = u
	return u
}

// Fail makes op fail with err for key. Ops are named after the Session
// methods, e.g. Fail("MediaComments", "123", err).
func (f *Fake) Fail(op, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[op+":"+key] = err
}

// Calls returns how often op was invoked
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Codes returns the two-factor codes Login received
func (f *Fake) Codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

func (f *Fake) enter(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errors[op+":"+key]
}

func (f *Fake) Login(ctx context.Context, username, password, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Login"]++
	f.codes = append(f.codes, code)
	if len(f.LoginErrors) > 0 {
		err := f.LoginErrors[0]
		f.LoginErrors = f.LoginErrors[1:]
		if err != nil {
			return err
		}
	}
	if u, ok := f.Users[username]; ok {
		f.loggedIn = &u.User
	} else {
		f.loggedIn = &User{PK: "1", Username: username}
	}
	return nil
}

func (f *Fake) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedIn == nil {
		return ""
	}
	return f.loggedIn.PK
}

func (f *Fake) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedIn == nil {
		return ""
	}
	return f.loggedIn.Username
}

func (f *Fake) Settings() ([]byte, error) {
	return json.Marshal(map[string]string{"username": f.Username()})
}

func (f *Fake) LoadSettings(data []byte) error {
	var m map[string]string
	return json.Unmarshal(data, &m)
}

func (f *Fake) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	if err := f.enter("UserIDFromUsername", username); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[username]
	if !ok {
		return "", fmt.Errorf("%s: %w", username, ErrUserNotFound)
	}
	return u.PK, nil
}

func (f *Fake) UserInfo(ctx context.Context, pk string) (*UserInfo, error) {
	if err := f.enter("UserInfo", pk); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users {
		if u.PK == pk {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", pk, ErrUserNotFound)
}

func (f *Fake) Friendship(ctx context.Context, pk string) (*Friendship, error) {
	if err := f.enter("Friendship", pk); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fr := f.Friendships[pk]
	return &fr, nil
}

func (f *Fake) Followers(ctx context.Context, pk string) ([]User, error) {
	return listing(f, "Followers", pk, f.FollowersOf)
}

func (f *Fake) Following(ctx context.Context, pk string) ([]User, error) {
	return listing(f, "Following", pk, f.FollowingOf)
}

func (f *Fake) UserMedias(ctx context.Context, pk string) ([]Media, error) {
	return listing(f, "UserMedias", pk, f.MediasOf)
}

func (f *Fake) UserStories(ctx context.Context, pk string) ([]Media, error) {
	return listing(f, "UserStories", pk, f.StoriesOf)
}

func (f *Fake) UsertagMedias(ctx context.Context, pk string) ([]Media, error) {
	return listing(f, "UsertagMedias", pk, f.TaggedIn)
}

func (f *Fake) Highlights(ctx context.Context, pk string) ([]Highlight, error) {
	return listing(f, "Highlights", pk, f.HighlightsOf)
}

func (f *Fake) HighlightInfo(ctx context.Context, highlightPK string) (*Highlight, error) {
	if err := f.enter("HighlightInfo", highlightPK); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.HighlightItems[highlightPK]
	if !ok {
		return nil, fmt.Errorf("highlight %s not found", highlightPK)
	}
	cp := *h
	return &cp, nil
}

func (f *Fake) MediaComments(ctx context.Context, mediaID string) ([]Comment, error) {
	return listing(f, "MediaComments", mediaID, f.Comments)
}

func (f *Fake) MediaLikers(ctx context.Context, mediaID string) ([]User, error) {
	return listing(f, "MediaLikers", mediaID, f.Likers)
}

func (f *Fake) HashtagInfo(ctx context.Context, name string) (*Hashtag, error) {
	if err := f.enter("HashtagInfo", name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.Hashtags[name]; ok {
		cp := *h
		return &cp, nil
	}
	return &Hashtag{Name: name}, nil
}

// Download serves bytes registered in Files
func (f *Fake) Download(ctx context.Context, url string) ([]byte, error) {
	if err := f.enter("Download", url); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[url]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", url)
	}
	return data, nil
}

func listing[T any](f *Fake, op, key string, src map[string][]T) ([]T, error) {
	if err := f.enter(op, key); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T(nil), src[key]...), nil
}

var _ Session = (*Fake)(nil)
