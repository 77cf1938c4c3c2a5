package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"igosint/internal/downloader"
	errs "igosint/pkg/errors"
	"igosint/pkg/session"
)

func (c *Collector) posts(ctx context.Context, r *run) error {
	posts, err := c.medias(ctx)
	if err != nil {
		return err
	}
	return c.downloadLimited(ctx, r, posts, "No posts found")
}

func (c *Collector) postsTagged(ctx context.Context, r *run) error {
	posts, err := c.usertagMedias(ctx)
	if err != nil {
		return err
	}
	return c.downloadLimited(ctx, r, posts, "No posts found")
}

func (c *Collector) stories(ctx context.Context, r *run) error {
	stories, err := c.session.UserStories(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("list stories", err)
	}
	return c.download(ctx, r, stories, "No stories found")
}

// downloadLimited asks how many of posts to download, newest first
func (c *Collector) downloadLimited(ctx context.Context, r *run, posts []session.Media, empty string) error {
	answer, err := c.ask("Enter number of posts to download: ")
	if err != nil {
		return err
	}
	limit := len(posts)
	if answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil || n < 0 {
			return errs.Invalid("limit", "Invalid number")
		}
		if n < limit {
			limit = n
		}
	}
	return c.download(ctx, r, posts[:limit], empty)
}

func (c *Collector) download(ctx context.Context, r *run, medias []session.Media, empty string) error {
	jobs := make([]downloader.Job, len(medias))
	for i, m := range medias {
		jobs[i] = downloader.Job{Media: m}
	}

	res := c.downloader.Download(ctx, c.target, jobs, c.console.Progress("Downloaded", " files"))
	c.summary(r, res.Succeeded, res.Failed)
	return c.reportDownload(res, empty)
}

func (c *Collector) reportDownload(res downloader.Result, empty string) error {
	if res.Succeeded == 0 {
		c.console.Error("%s", empty)
		return nil
	}
	c.console.Success("Downloaded %d of %d files", res.Succeeded, res.Total)
	return nil
}

func (c *Collector) highlights(ctx context.Context, r *run) error {
	folders, err := c.session.Highlights(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("list highlights", err)
	}
	if len(folders) == 0 {
		c.console.Error("No highlights found")
		return nil
	}

	if c.interactive && c.prompter.Pending() == 0 {
		names := make([]string, len(folders))
		for i, f := range folders {
			names[i] = fmt.Sprintf("%d=%s", i, f.Title)
		}
		c.console.Info("Highlights", strings.Join(names, "  "))
	}
	answer, err := c.ask("Enter highlight folder numbers to download (comma separated): ")
	if err != nil {
		return err
	}
	selected, err := selectFolders(folders, answer)
	if err != nil {
		return err
	}

	res := c.downloader.DownloadHighlights(ctx, c.target, selected, c.session, c.console.Progress("Downloaded", " files"))
	c.summary(r, res.Succeeded, res.Failed)
	return c.reportDownload(res, "No highlights found")
}

// selectFolders picks folders by comma separated indices; empty means all
func selectFolders(folders []session.Highlight, answer string) ([]session.Highlight, error) {
	answer = strings.ReplaceAll(answer, " ", "")
	if answer == "" {
		return folders, nil
	}
	var out []session.Highlight
	for _, s := range strings.Split(answer, ",") {
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 || i >= len(folders) {
			return nil, errs.Invalid("highlights", "Invalid highlight folder number: %s", s)
		}
		out = append(out, folders[i])
	}
	return out, nil
}
