package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"igosint/internal/fanout"
	errs "igosint/pkg/errors"
	"igosint/pkg/session"
)

func (c *Collector) info(ctx context.Context, r *run) error {
	info, err := c.session.UserInfo(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("user info", err)
	}

	for _, f := range infoFields(info) {
		c.console.Info(f[0], f[1])
	}

	if !c.exporter.JSONEnabled() {
		return nil
	}
	name := info.Username + "_info"
	if _, err := c.exporter.WriteJSON(name, info); err != nil {
		return err
	}
	c.console.Success("Successfully saved %s info to %s.json", c.target, name)
	return nil
}

// infoFields lists the non-empty profile fields in display order
func infoFields(u *session.UserInfo) [][2]string {
	var out [][2]string
	str := func(k, v string) {
		if v != "" {
			out = append(out, [2]string{k, v})
		}
	}
	num := func(k string, v int) {
		if v != 0 {
			out = append(out, [2]string{k, strconv.Itoa(v)})
		}
	}
	flag := func(k string, v bool) {
		if v {
			out = append(out, [2]string{k, "true"})
		}
	}

	str("pk", u.PK)
	str("username", u.Username)
	str("full_name", u.FullName)
	flag("is_private", u.IsPrivate)
	flag("is_verified", u.IsVerified)
	flag("is_business", u.IsBusiness)
	str("category", u.Category)
	str("biography", u.Biography)
	str("external_url", u.ExternalURL)
	num("media_count", u.MediaCount)
	num("follower_count", u.FollowerCount)
	num("following_count", u.FollowingCount)
	str("public_email", u.PublicEmail)
	str("contact_phone_number", u.ContactPhone)
	str("city_name", u.City)
	str("profile_pic_url", u.ProfilePicURL)
	str("profile_pic_url_hd", u.ProfilePicURLHD)
	return out
}

func (c *Collector) profilePic(ctx context.Context, r *run) error {
	info, err := c.session.UserInfo(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("user info", err)
	}
	url := info.ProfilePicURLHD
	if url == "" {
		url = info.ProfilePicURL
	}
	if url == "" {
		c.console.Error("No profile picture found")
		return nil
	}

	name := c.target + "_profile-pic.jpg"
	if _, err := c.downloader.DownloadURL(ctx, url, name); err != nil {
		return fmt.Errorf("failed to download profile picture: %w", err)
	}
	c.console.Success("Successfully saved %s profile pic to %s", c.target, name)
	return nil
}

// changeTarget switches to a new target. A failed lookup keeps the current one.
func (c *Collector) changeTarget(ctx context.Context, r *run) error {
	answer, err := c.ask("Enter new target username: ")
	if err != nil {
		return err
	}
	next := trimUsername(answer)
	if next == "" || next == c.target {
		c.console.Success("Target already set to %s", c.target)
		return nil
	}
	if err := c.SetTarget(ctx, next); err != nil {
		return fmt.Errorf("failed to change target to %s: %w", next, err)
	}
	return nil
}

func (c *Collector) infoList(ctx context.Context, r *run) error {
	if err := c.requireJSON(); err != nil {
		return err
	}
	c.console.Warn("WARNING! User info requests have a low rate limit.\n" +
		"Please use this command lightly to avoid being blocked.")

	filename, err := c.ask("Filename (relative to the output dir): ")
	if err != nil {
		return err
	}
	store := c.exporter.Store()
	if !filepath.IsLocal(filename) || !IsInfoListSource(filename) || !store.Exists(filename) {
		return errs.Invalid("filename", "No valid file exists with the name: %s", filename)
	}

	raw, err := os.ReadFile(store.Path(filename))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}
	pks, err := ParseInfoList(raw)
	if err != nil {
		r.log.WithError(err).Warn("Unrecognized info-list file")
		return errs.Invalid("filename", "Invalid file structure")
	}

	start, err := c.askIndex("Starting index (inclusive): ", 0, "start", "Invalid starting index")
	if err != nil {
		return err
	}
	end, err := c.askIndex("Ending index (non-inclusive): ", len(pks), "end", "Invalid ending index")
	if err != nil {
		return err
	}
	lo, hi := sliceBounds(len(pks), start, end)
	batch := pks[lo:hi]

	workers := fanout.AdaptiveCapFrom(c.cfg.InfoWorkers).For(len(batch))
	report := fanout.Run(ctx, batch, func(pk string) string { return pk },
		func(ctx context.Context, pk string) (*session.UserInfo, error) {
			return c.session.UserInfo(ctx, pk)
		},
		c.options("info-list", workers, r.log, c.console.Progress("Getting user", " users")))
	c.summary(r, report.Succeeded, report.Failed)

	users := make([]*session.UserInfo, 0, report.Succeeded)
	for _, res := range report.InOrder() {
		if res.Err == nil {
			users = append(users, res.Value)
		}
	}
	c.console.Success("Collected %d user info", len(users))

	name := fmt.Sprintf("%s_%d_%d_info", strings.TrimSuffix(filename, ".json"), start, end)
	if _, err := c.exporter.WriteJSON(name, users); err != nil {
		return err
	}
	c.console.Success("Successfully saved %s user info to %s.json", c.target, name)
	return nil
}

// askIndex reads an integer, returning def for an empty answer
func (c *Collector) askIndex(prompt string, def int, field, invalid string) (int, error) {
	answer, err := c.ask(prompt)
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return 0, errs.Invalid(field, "%s", invalid)
	}
	return n, nil
}
