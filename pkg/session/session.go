// Package session defines the remote capability the collector runs
// against, its data model and the interactive two-factor login loop.
package session

import (
	"context"
	"errors"
	"fmt"

	errs "igosint/pkg/errors"
	"igosint/pkg/logger"
)

var (
	// ErrTwoFactorRequired means the password was accepted and a code is needed
	ErrTwoFactorRequired = errors.New("two-factor authentication required")
	// ErrBadVerificationCode means the supplied two-factor code was rejected
	ErrBadVerificationCode = errors.New("invalid verification code")
	// ErrUserNotFound means a username or pk does not resolve
	ErrUserNotFound = errors.New("user not found")
	// ErrNoInput means a prompt had nothing left to read
	ErrNoInput = errors.New("no input available")
)

// Session is an authenticated connection to the remote platform. Listing
// calls return the complete collection; implementations paginate.
type Session interface {
	Login(ctx context.Context, username, password, code string) error
	UserID() string
	Username() string

	// Settings serializes device and cookie state for reuse across runs
	Settings() ([]byte, error)
	LoadSettings(data []byte) error

	UserIDFromUsername(ctx context.Context, username string) (string, error)
	UserInfo(ctx context.Context, pk string) (*UserInfo, error)
	Friendship(ctx context.Context, pk string) (*Friendship, error)

	Followers(ctx context.Context, pk string) ([]User, error)
	Following(ctx context.Context, pk string) ([]User, error)
	UserMedias(ctx context.Context, pk string) ([]Media, error)
	UserStories(ctx context.Context, pk string) ([]Media, error)
	UsertagMedias(ctx context.Context, pk string) ([]Media, error)
	Highlights(ctx context.Context, pk string) ([]Highlight, error)
	HighlightInfo(ctx context.Context, highlightPK string) (*Highlight, error)

	MediaComments(ctx context.Context, mediaID string) ([]Comment, error)
	MediaLikers(ctx context.Context, mediaID string) ([]User, error)
	HashtagInfo(ctx context.Context, name string) (*Hashtag, error)
}

// CodePrompt asks the user for a two-factor code
type CodePrompt func(ctx context.Context) (string, error)

// LoginWithRetry logs in, asking for a new code for as long as the remote
// side reports a missing or wrong two-factor code. Any other failure, or
// running out of codes, is returned as a fatal error.
func LoginWithRetry(ctx context.Context, s Session, username, password, code string, prompt CodePrompt, log logger.Logger) error {
	if log == nil {
		log = logger.NewNopLogger()
	}

	for attempt := 1; ; attempt++ {
		err := s.Login(ctx, username, password, code)
		if err == nil {
			log.InfoWithFields("Logged in", map[string]interface{}{
				"username": username,
				"attempts": attempt,
			})
			return nil
		}

		if !errors.Is(err, ErrTwoFactorRequired) && !errors.Is(err, ErrBadVerificationCode) {
			return errs.Fatal("login", err)
		}

		log.WithError(err).WarnWithFields("Two-factor code needed", map[string]interface{}{
			"attempt": attempt,
		})
		if prompt == nil {
			return errs.Fatal("login", err)
		}
		code, err = prompt(ctx)
		if err != nil {
			return errs.Fatal("login", fmt.Errorf("failed to read verification code: %w", err))
		}
	}
}
