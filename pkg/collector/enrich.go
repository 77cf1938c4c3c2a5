package collector

import (
	"context"
	"errors"
	"fmt"

	"igosint/internal/fanout"
	"igosint/pkg/export"
	"igosint/pkg/geocode"
	"igosint/pkg/session"
)

func (c *Collector) comments(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	report := fanout.Run(ctx, posts, mediaKey,
		func(ctx context.Context, m session.Media) ([]session.Comment, error) {
			return c.session.MediaComments(ctx, m.ID)
		},
		c.options("comments", c.cfg.CommentWorkers, r.log, c.console.Progress("Checking post", "")))
	c.summary(r, report.Succeeded, report.Failed)

	data := mergeKeyed(report, nonEmpty[session.Comment])

	t := export.NewTable("id", "comment_pk", "user_pk", "username", "created_at", "like_count", "text").
		SetMaxWidth("text", 50)
	total := 0
	data.Each(func(id string, comments []session.Comment) {
		for _, cm := range comments {
			t.AddRow(id, cm.PK, cm.User.PK, cm.User.Username, unix(cm.CreatedAt), cm.LikeCount, cm.Text)
			total++
		}
	})

	if total == 0 {
		c.console.Error("No comments found")
		return nil
	}

	c.printTable(t)
	c.console.Success("Found %d post with comments. Total comments: %d", data.Len(), total)
	return c.save(data, t, "comments", "")
}

func (c *Collector) likers(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	report := fanout.Run(ctx, posts, mediaKey,
		func(ctx context.Context, m session.Media) ([]session.User, error) {
			return c.session.MediaLikers(ctx, m.ID)
		},
		c.options("likers", c.cfg.LikerWorkers, r.log, c.console.Progress("Checking post", "")))
	c.summary(r, report.Succeeded, report.Failed)

	data := mergeKeyed(report, nonEmpty[session.User])

	t := export.NewTable("id", "pk", "username", "full_name")
	total := 0
	data.Each(func(id string, users []session.User) {
		for _, u := range users {
			t.AddRow(id, u.PK, u.Username, u.FullName)
			total++
		}
	})

	if data.Len() == 0 {
		c.console.Error("No posts found")
		return nil
	}

	c.printTable(t)
	c.console.Success("Found %d posts.", data.Len())
	return c.save(data, t, "likers", "")
}

type hashtagRecord struct {
	TakenAt       int64  `json:"taken_at"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	MediaCount    int    `json:"media_count"`
	ProfilePicURL string `json:"profile_pic_url"`
}

func (c *Collector) hashtags(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	report := fanout.Run(ctx, posts, mediaKey,
		func(ctx context.Context, m session.Media) ([]hashtagRecord, error) {
			tags := ExtractHashtags(m.CaptionText)
			records := make([]hashtagRecord, 0, len(tags))
			for _, tag := range tags {
				h, err := c.session.HashtagInfo(ctx, tag[1:])
				if err != nil {
					return nil, fmt.Errorf("failed to look up %s: %w", tag, err)
				}
				records = append(records, hashtagRecord{
					TakenAt:       unix(m.TakenAt),
					ID:            h.ID,
					Name:          h.Name,
					MediaCount:    h.MediaCount,
					ProfilePicURL: h.ProfilePicURL,
				})
			}
			return records, nil
		},
		c.options("hashtags", c.cfg.DefaultWorkers, r.log, c.console.Progress("Checking post", "")))
	c.summary(r, report.Succeeded, report.Failed)

	data := mergeKeyed(report, nonEmpty[hashtagRecord])

	t := export.NewTable("id", "taken_at", "hashtag_id", "name", "media_count", "profile_pic_url").
		SetMaxWidth("profile_pic_url", 50)
	total := 0
	data.Each(func(id string, records []hashtagRecord) {
		for _, h := range records {
			t.AddRow(id, h.TakenAt, h.ID, h.Name, h.MediaCount, h.ProfilePicURL)
			total++
		}
	})

	if total == 0 {
		c.console.Error("No hashtags found")
		return nil
	}

	c.printTable(t)
	c.console.Success("Found %d post with hashtags. Total hashtags: %d", data.Len(), total)
	return c.save(data, t, "hashtags", "")
}

type locationRecord struct {
	TakenAt int64   `json:"taken_at"`
	LocPK   string  `json:"loc_pk"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (c *Collector) locations(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	located := make([]session.Media, 0, len(posts))
	for _, p := range posts {
		if p.Location.HasCoordinates() {
			located = append(located, p)
		}
	}

	report := fanout.Run(ctx, located, mediaKey, c.locate,
		c.options("locations", c.cfg.DefaultWorkers, r.log, c.console.Progress("Checking post", "")))
	c.summary(r, report.Succeeded, report.Failed)

	data := mergeKeyed(report, func(l *locationRecord) bool { return l != nil })

	t := export.NewTable("id", "taken_at", "loc_pk", "name", "address", "lat", "lng").
		SetMaxWidth("address", 50)
	data.Each(func(id string, l *locationRecord) {
		t.AddRow(id, l.TakenAt, l.LocPK, l.Name, l.Address, l.Lat, l.Lng)
	})

	if data.Len() == 0 {
		c.console.Error("No locations found")
		return nil
	}

	c.printTable(t)
	c.console.Success("Found %d locations", data.Len())
	return c.save(data, t, "locations", "")
}

// locate resolves a post's coordinates through the geocoder
func (c *Collector) locate(ctx context.Context, m session.Media) (*locationRecord, error) {
	loc := m.Location
	rec := &locationRecord{
		TakenAt: unix(m.TakenAt),
		LocPK:   loc.PK,
		Name:    loc.Name,
		Address: loc.Address,
		Lat:     *loc.Lat,
		Lng:     *loc.Lng,
	}
	if c.geocoder == nil {
		return rec, nil
	}
	place, err := c.geocoder.Reverse(ctx, *loc.Lat, *loc.Lng)
	if errors.Is(err, geocode.ErrNoResult) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reverse geocode %s: %w", loc.PK, err)
	}
	rec.Address, rec.Lat, rec.Lng = place.Address, place.Lat, place.Lng
	return rec, nil
}
