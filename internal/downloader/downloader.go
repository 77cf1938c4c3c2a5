// Package downloader expands media records into concrete files and saves
// them concurrently under deterministic names.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"igosint/internal/fanout"
	"igosint/pkg/logger"
	"igosint/pkg/session"
	"igosint/pkg/storage"
)

// Fetcher retrieves the bytes behind a media URL
type Fetcher interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// HighlightFetcher loads the items of one highlight folder
type HighlightFetcher interface {
	HighlightInfo(ctx context.Context, highlightPK string) (*session.Highlight, error)
}

// Job is one media record to save into Dir, relative to the output directory
type Job struct {
	Media session.Media
	Dir   string
}

// Resource is a single downloadable file
type Resource struct {
	PK        string
	TakenAt   time.Time
	MediaType session.MediaType
	Owner     string
	URL       string
	Dir       string
}

// Result counts the outcome of a download batch
type Result struct {
	Succeeded int
	Failed    int
	Total     int
}

// Expand replaces every album by its resources, in place and in order.
// Resources inherit the album's timestamp and owner. The input is not
// modified.
func Expand(jobs []Job) []Resource {
	out := make([]Resource, 0, len(jobs))
	for _, j := range jobs {
		m := j.Media
		if m.MediaType != session.MediaAlbum {
			out = append(out, Resource{
				PK:        m.PK,
				TakenAt:   m.TakenAt,
				MediaType: m.MediaType,
				Owner:     m.User.Username,
				URL:       urlFor(m.MediaType, m.ThumbnailURL, m.VideoURL),
				Dir:       j.Dir,
			})
			continue
		}
		for _, r := range m.Resources {
			out = append(out, Resource{
				PK:        r.PK,
				TakenAt:   m.TakenAt,
				MediaType: r.MediaType,
				Owner:     m.User.Username,
				URL:       urlFor(r.MediaType, r.ThumbnailURL, r.VideoURL),
				Dir:       j.Dir,
			})
		}
	}
	return out
}

func urlFor(t session.MediaType, thumbnail, video string) string {
	switch t {
	case session.MediaPhoto:
		return thumbnail
	case session.MediaVideo:
		return video
	default:
		return ""
	}
}

// FileName derives `{prefix}_{pk}_{unix}.jpg|.mp4`. The prefix is the
// target, annotated with the owner when someone else posted the media.
func FileName(target string, r Resource) string {
	prefix := target
	if r.Owner != "" && r.Owner != target {
		prefix = fmt.Sprintf("%s_tagged-by_%s", target, r.Owner)
	}
	ext := ".jpg"
	if r.MediaType == session.MediaVideo {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s_%s_%d%s", prefix, r.PK, r.TakenAt.Unix(), ext)
}

// Downloader saves media through a Fetcher into a storage.Manager
type Downloader struct {
	fetcher Fetcher
	store   *storage.Manager
	workers int
	logger  logger.Logger
}

// New creates a Downloader. workers <= 0 means fanout.DefaultWorkers().
func New(fetcher Fetcher, store *storage.Manager, workers int, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{
		fetcher: fetcher,
		store:   store,
		workers: workers,
		logger:  log.WithField("component", "downloader"),
	}
}

// Download expands jobs and saves every resource. A failed file is counted
// and logged; it never stops the rest of the batch.
func (d *Downloader) Download(ctx context.Context, target string, jobs []Job, onProgress func(fanout.Event)) Result {
	resources := Expand(jobs)

	report := fanout.Run(ctx, resources, func(r Resource) string { return r.PK },
		func(ctx context.Context, r Resource) (string, error) {
			if r.URL == "" {
				return "", fmt.Errorf("no URL for %s resource %s", r.MediaType, r.PK)
			}
			return d.DownloadURL(ctx, r.URL, filepath.Join(r.Dir, FileName(target, r)))
		},
		fanout.Options{
			Workers:    d.workers,
			Label:      "download",
			OnProgress: onProgress,
			Logger:     d.logger,
		})

	d.logger.InfoWithFields("Download batch finished", map[string]interface{}{
		"target":    target,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"elapsed":   report.Elapsed,
	})

	return Result{Succeeded: report.Succeeded, Failed: report.Failed, Total: report.Total}
}

// DownloadURL fetches url and saves it atomically at rel
func (d *Downloader) DownloadURL(ctx context.Context, url, rel string) (string, error) {
	data, err := d.fetcher.Download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	path, err := d.store.Save(rel, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("save failed: %w", err)
	}
	d.logger.DebugWithFields("Saved file", map[string]interface{}{
		"path": path,
		"size": len(data),
	})
	return path, nil
}

// DownloadHighlights loads each folder's items, saves its cover and then
// every item into a directory named after the folder. Titles shared by
// several selected folders get the folder pk appended.
func (d *Downloader) DownloadHighlights(ctx context.Context, target string, folders []session.Highlight, hf HighlightFetcher, onProgress func(fanout.Event)) Result {
	titles := make(map[string]int, len(folders))
	for _, f := range folders {
		titles[f.Title]++
	}

	report := fanout.Run(ctx, folders, func(h session.Highlight) string { return h.PK },
		func(ctx context.Context, h session.Highlight) (*session.Highlight, error) {
			return hf.HighlightInfo(ctx, h.PK)
		},
		fanout.Options{Workers: d.workers, Label: "highlights", Logger: d.logger})

	var jobs []Job
	for _, res := range report.InOrder() {
		if res.Err != nil {
			continue
		}
		h := res.Value
		title := folders[res.Index].Title
		if h.Title != "" {
			title = h.Title
		}
		if titles[title] > 1 {
			title = fmt.Sprintf("%s_%s", title, h.PK)
		}
		dir := safeName(title)

		if _, err := d.store.EnsureDir(dir); err != nil {
			logger.LogFanOutFailure(d.logger, "highlights", h.PK, err)
			continue
		}
		if h.CoverURL != "" {
			cover := filepath.Join(dir, fmt.Sprintf("%s_%s_cover.jpg", target, safeName(title)))
			if _, err := d.DownloadURL(ctx, h.CoverURL, cover); err != nil {
				logger.LogFanOutFailure(d.logger, "highlight-cover", h.PK, err)
			}
		}
		for _, item := range h.Items {
			jobs = append(jobs, Job{Media: item, Dir: dir})
		}
	}

	return d.Download(ctx, target, jobs, onProgress)
}

// safeName keeps a folder title usable as a single path element
func safeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(s)
	if s == "" || s == "." || s == ".." {
		return "untitled"
	}
	return s
}
