package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "igosint/pkg/errors"
	"igosint/pkg/session"
)

func signedBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	require.NoError(t, r.ParseForm())
	raw := strings.TrimPrefix(r.PostForm.Get("signed_body"), "SIGNATURE.")
	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		body := signedBody(t, r)
		assert.Equal(t, "alice", body["username"])
		assert.Contains(t, body["enc_password"], ":hunter2")
		w.Header().Set("ig-set-authorization", "Bearer IGT:2:xyz")
		w.Write([]byte(`{"logged_in_user":{"pk":101,"username":"alice"},"status":"ok"}`))
	})
	c := newTestServer(t, mux)

	require.NoError(t, c.Login(context.Background(), "alice", "hunter2", ""))
	assert.Equal(t, "101", c.UserID())
	assert.Equal(t, "alice", c.Username())
	assert.Equal(t, "Bearer IGT:2:xyz", c.state.Authorization)
}

func TestLoginTwoFactor(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"two_factor_required":true,"two_factor_info":{"two_factor_identifier":"tfid"},"status":"fail"}`))
	})
	mux.HandleFunc("/api/v1/accounts/two_factor_login/", func(w http.ResponseWriter, r *http.Request) {
		body := signedBody(t, r)
		assert.Equal(t, "tfid", body["two_factor_identifier"])
		if body["verification_code"] != "123456" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"Please check the security code","error_type":"sms_code_validation_code_invalid"}`))
			return
		}
		w.Write([]byte(`{"logged_in_user":{"pk":"7","username":"alice"}}`))
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	err := c.Login(ctx, "alice", "pw", "")
	assert.ErrorIs(t, err, session.ErrTwoFactorRequired)

	err = c.Login(ctx, "alice", "pw", "000000")
	assert.ErrorIs(t, err, session.ErrBadVerificationCode)

	require.NoError(t, c.Login(ctx, "alice", "pw", "123456"))
	assert.Equal(t, "7", c.UserID())
}

func TestLoginWithRetryOverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"two_factor_required":true,"two_factor_info":{"two_factor_identifier":"id"}}`))
	})
	mux.HandleFunc("/api/v1/accounts/two_factor_login/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logged_in_user":{"pk":"7","username":"alice"}}`))
	})
	c := newTestServer(t, mux)

	prompts := 0
	prompt := func(ctx context.Context) (string, error) {
		prompts++
		return "111111", nil
	}
	require.NoError(t, session.LoginWithRetry(context.Background(), c, "alice", "pw", "", prompt, nil))
	assert.Equal(t, 1, prompts)
}

func TestLoginBadPasswordIsAuthError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"The password you entered is incorrect.","error_type":"bad_password","status":"fail"}`))
	})
	c := newTestServer(t, mux)

	err := c.Login(context.Background(), "alice", "wrong", "")
	require.Error(t, err)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Contains(t, apiErr.Response, "bad_password")
}

func TestFollowersPaginates(t *testing.T) {
	var (
		mu      sync.Mutex
		cursors []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/friendships/9/followers/", func(w http.ResponseWriter, r *http.Request) {
		maxID := r.URL.Query().Get("max_id")
		mu.Lock()
		cursors = append(cursors, maxID)
		mu.Unlock()
		assert.Equal(t, "100", r.URL.Query().Get("count"))
		switch maxID {
		case "":
			w.Write([]byte(`{"users":[{"pk":1,"username":"u1"},{"pk":2,"username":"u2"}],"next_max_id":"c1"}`))
		case "c1":
			w.Write([]byte(`{"users":[{"pk":"3","username":"u3"}],"next_max_id":null}`))
		}
	})
	c := newTestServer(t, mux)

	users, err := c.Followers(context.Background(), "9")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{users[0].PK, users[1].PK, users[2].PK})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "c1"}, cursors)
}

func TestPaginateStopsOnRepeatedCursor(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/friendships/9/following/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"users":[{"pk":1}],"next_max_id":"same"}`))
	})
	c := newTestServer(t, mux)

	users, err := c.Following(context.Background(), "9")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestUserMedias(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/feed/user/9/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max_id") == "" {
			fmt.Fprint(w, `{"items":[
				{"pk":11,"id":"11_9","code":"A","taken_at":1700000000,"media_type":1,"user":{"pk":9,"username":"target"},
				 "caption":{"text":"hello #world"},"like_count":5,"image_versions2":{"candidates":[{"url":"https://cdn/11.jpg"}]},
				 "location":{"pk":77,"name":"Park","lat":1.5,"lng":2.5},
				 "usertags":{"in":[{"user":{"pk":3,"username":"friend"},"position":[0.1,0.2]}]}}
			],"next_max_id":"n1","more_available":true}`)
			return
		}
		fmt.Fprint(w, `{"items":[
			{"pk":12,"taken_at":1700000100,"media_type":8,"user":{"pk":9,"username":"target"},"caption":null,
			 "carousel_media":[
				{"pk":121,"media_type":1,"image_versions2":{"candidates":[{"url":"https://cdn/121.jpg"}]}},
				{"pk":122,"media_type":2,"video_versions":[{"url":"https://cdn/122.mp4"}]}]}
		],"next_max_id":"n2","more_available":false}`)
	})
	c := newTestServer(t, mux)

	medias, err := c.UserMedias(context.Background(), "9")
	require.NoError(t, err)
	require.Len(t, medias, 2)

	first := medias[0]
	assert.Equal(t, "11", first.PK)
	assert.Equal(t, "11_9", first.ID)
	assert.Equal(t, session.MediaPhoto, first.MediaType)
	assert.Equal(t, int64(1700000000), first.TakenAt.Unix())
	assert.Equal(t, "hello #world", first.CaptionText)
	assert.Equal(t, "https://cdn/11.jpg", first.ThumbnailURL)
	require.True(t, first.Location.HasCoordinates())
	assert.Equal(t, 1.5, *first.Location.Lat)
	require.Len(t, first.Usertags, 1)
	assert.Equal(t, "friend", first.Usertags[0].User.Username)
	assert.Equal(t, 0.2, first.Usertags[0].Y)

	album := medias[1]
	assert.Equal(t, "12", album.ID)
	assert.Equal(t, session.MediaAlbum, album.MediaType)
	assert.Empty(t, album.CaptionText)
	require.Len(t, album.Resources, 2)
	assert.Equal(t, "https://cdn/121.jpg", album.Resources[0].ThumbnailURL)
	assert.Equal(t, session.MediaVideo, album.Resources[1].MediaType)
	assert.Equal(t, "https://cdn/122.mp4", album.Resources[1].VideoURL)
}

func TestUserStoriesWithoutReel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/feed/user/9/story/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reel":null,"status":"ok"}`))
	})
	c := newTestServer(t, mux)

	items, err := c.UserStories(context.Background(), "9")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHighlights(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/highlights/9/highlights_tray/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tray":[{"id":"highlight:555","title":"Trips","cover_media":{"cropped_image_version":{"url":"https://cdn/cover.jpg"}}}]}`))
	})
	mux.HandleFunc("/api/v1/feed/reels_media/", func(w http.ResponseWriter, r *http.Request) {
		ids, _ := url.ParseQuery(r.URL.RawQuery)
		assert.Equal(t, "highlight:555", ids.Get("reel_ids"))
		w.Write([]byte(`{"reels":{"highlight:555":{"id":"highlight:555","title":"Trips","items":[{"pk":1,"media_type":1,"taken_at":5}]}}}`))
	})
	c := newTestServer(t, mux)
	ctx := context.Background()

	folders, err := c.Highlights(ctx, "9")
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "555", folders[0].PK)
	assert.Equal(t, "Trips", folders[0].Title)
	assert.Equal(t, "https://cdn/cover.jpg", folders[0].CoverURL)

	h, err := c.HighlightInfo(ctx, "555")
	require.NoError(t, err)
	require.Len(t, h.Items, 1)
	assert.Equal(t, "1", h.Items[0].PK)
}

func TestCommentsFollowMinID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/media/11_9/comments/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("min_id") == "" {
			w.Write([]byte(`{"comments":[{"pk":1,"text":"nice","user":{"pk":3,"username":"x"},"created_at_utc":1700000000,"comment_like_count":2}],"next_min_id":"{\"cached\":1}"}`))
			return
		}
		w.Write([]byte(`{"comments":[{"pk":2,"text":"wow","user":{"pk":4,"username":"y"},"created_at_utc":1700000001}]}`))
	})
	c := newTestServer(t, mux)

	comments, err := c.MediaComments(context.Background(), "11_9")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "nice", comments[0].Text)
	assert.Equal(t, 2, comments[0].LikeCount)
	assert.Equal(t, "x", comments[0].User.Username)
	assert.Equal(t, int64(1700000001), comments[1].CreatedAt.Unix())
}

func TestHashtagInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tags/sunset/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":17841,"name":"sunset","media_count":1000,"profile_pic_url":"https://cdn/tag.jpg"}`))
	})
	c := newTestServer(t, mux)

	h, err := c.HashtagInfo(context.Background(), "#sunset")
	require.NoError(t, err)
	assert.Equal(t, "17841", h.ID)
	assert.Equal(t, 1000, h.MediaCount)
}
