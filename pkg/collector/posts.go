package collector

import (
	"context"

	"igosint/pkg/export"
	"igosint/pkg/session"
)

type captionRecord struct {
	ID      string `json:"id"`
	TakenAt int64  `json:"taken_at"`
	Caption string `json:"caption"`
}

func (c *Collector) captions(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		c.console.Error("No captions found")
		return nil
	}

	data := make([]captionRecord, 0, len(posts))
	t := export.NewTable("id", "taken_at", "caption").SetMaxWidth("caption", 50)
	for _, p := range posts {
		rec := captionRecord{ID: p.ID, TakenAt: unix(p.TakenAt), Caption: p.CaptionText}
		data = append(data, rec)
		t.AddRow(rec.ID, rec.TakenAt, rec.Caption)
	}

	c.printTable(t)
	c.console.Success("Found %d captions", len(data))
	return c.save(data, t, "captions", "")
}

type likeRecord struct {
	TakenAt   int64  `json:"taken_at"`
	MediaType string `json:"media_type"`
	LikeCount int    `json:"like_count"`
	HasLiked  bool   `json:"has_liked"`
	Sum       int    `json:"sum"`
}

func (c *Collector) likes(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	data := NewKeyed[likeRecord]()
	t := export.NewTable("id", "taken_at", "media_type", "like_count", "has_liked", "sum")
	sum := 0
	for _, p := range posts {
		sum += p.LikeCount
		rec := likeRecord{
			TakenAt:   unix(p.TakenAt),
			MediaType: p.MediaType.String(),
			LikeCount: p.LikeCount,
			HasLiked:  p.HasLiked,
			Sum:       sum,
		}
		data.Set(p.ID, rec)
		t.AddRow(p.ID, rec.TakenAt, rec.MediaType, rec.LikeCount, rec.HasLiked, rec.Sum)
	}

	c.printTable(t)
	c.console.Success("Found %d posts, with total likes: %d", len(posts), sum)
	return c.save(data, t, "likes", "")
}

type viewRecord struct {
	TakenAt   int64 `json:"taken_at"`
	ViewCount int   `json:"view_count"`
	Sum       int   `json:"sum"`
}

func (c *Collector) viewcount(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}

	data := NewKeyed[viewRecord]()
	t := export.NewTable("id", "taken_at", "view_count", "sum")
	sum := 0
	for _, p := range posts {
		if p.MediaType != session.MediaVideo {
			continue
		}
		sum += p.ViewCount
		rec := viewRecord{TakenAt: unix(p.TakenAt), ViewCount: p.ViewCount, Sum: sum}
		data.Set(p.ID, rec)
		t.AddRow(p.ID, rec.TakenAt, rec.ViewCount, rec.Sum)
	}

	c.printTable(t)
	c.console.Success("Found %d videos, with total viewcount: %d", data.Len(), sum)
	return c.save(data, t, "viewcount", "")
}

type usertagsRecord struct {
	TakenAt  int64             `json:"taken_at"`
	Usertags []session.Usertag `json:"usertags"`
}

type taggerRecord struct {
	TakenAt int64        `json:"taken_at"`
	User    session.User `json:"user"`
}

func taggedTable() *export.Table {
	return export.NewTable("id", "taken_at", "user_pk", "username", "full_name")
}

// tagged lists the users the target tagged on its own posts
func (c *Collector) tagged(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}
	data, t, count := usertags(posts, func(session.Usertag) bool { return true })

	c.printTable(t)
	c.console.Success("Found %d usertags", count)
	return c.save(data, t, "tagged", "tagged data")
}

// taggedWith lists the other users tagged on posts that tag the target
func (c *Collector) taggedWith(ctx context.Context, r *run) error {
	posts, err := c.usertagMedias(ctx)
	if err != nil {
		return err
	}
	data, t, count := usertags(posts, func(tag session.Usertag) bool { return tag.User.PK != c.targetID })

	c.printTable(t)
	c.console.Success("Found %d usertags", count)
	return c.save(data, t, "tagged-with", "tagged with data")
}

// usertags keys the kept usertags of every post by post id. Posts left
// without tags are dropped.
func usertags(posts []session.Media, keep func(session.Usertag) bool) (*Keyed[usertagsRecord], *export.Table, int) {
	data := NewKeyed[usertagsRecord]()
	t := taggedTable()
	count := 0
	for _, p := range posts {
		var tags []session.Usertag
		for _, tag := range p.Usertags {
			if keep(tag) {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			continue
		}
		for _, tag := range tags {
			t.AddRow(p.ID, unix(p.TakenAt), tag.User.PK, tag.User.Username, tag.User.FullName)
			count++
		}
		data.Set(p.ID, usertagsRecord{TakenAt: unix(p.TakenAt), Usertags: tags})
	}
	return data, t, count
}

// taggedTarget lists the owners of posts that tag the target
func (c *Collector) taggedTarget(ctx context.Context, r *run) error {
	posts, err := c.usertagMedias(ctx)
	if err != nil {
		return err
	}

	data := NewKeyed[taggerRecord]()
	t := taggedTable()
	for _, p := range posts {
		data.Set(p.ID, taggerRecord{TakenAt: unix(p.TakenAt), User: p.User})
		t.AddRow(p.ID, unix(p.TakenAt), p.User.PK, p.User.Username, p.User.FullName)
	}

	c.printTable(t)
	c.console.Success("Found %d usertags", data.Len())
	return c.save(data, t, "tagged-target", "tagged target data")
}

func (c *Collector) postsData(ctx context.Context, r *run) error {
	if err := c.requireJSON(); err != nil {
		return err
	}
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}
	return c.dump(posts, "posts-data", "posts data")
}

func (c *Collector) postsTaggedData(ctx context.Context, r *run) error {
	if err := c.requireJSON(); err != nil {
		return err
	}
	posts, err := c.usertagMedias(ctx)
	if err != nil {
		return err
	}
	return c.dump(posts, "posts-tagged-data", "posts tagged data")
}

// dump writes records as `{target}_{suffix}.json` regardless of the TXT toggle
func (c *Collector) dump(data interface{}, suffix, text string) error {
	name := c.target + "_" + suffix
	if _, err := c.exporter.WriteJSON(name, data); err != nil {
		return err
	}
	c.console.Success("Successfully saved %s %s to %s.json", c.target, text, name)
	return nil
}
