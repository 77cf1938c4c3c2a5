package collector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"igosint/internal/downloader"
	"igosint/internal/fanout"
	"igosint/pkg/config"
	errs "igosint/pkg/errors"
	"igosint/pkg/export"
	"igosint/pkg/geocode"
	"igosint/pkg/logger"
	"igosint/pkg/session"
	"igosint/pkg/ui"
)

// Options wires a Collector to its collaborators
type Options struct {
	Session    session.Session
	Downloader *downloader.Downloader
	Exporter   *export.Exporter
	Console    *ui.Console
	Prompter   *ui.Prompter
	// Geocoder resolves post coordinates to an address; nil keeps the
	// location as reported by the platform
	Geocoder geocode.Reverser
	Config   config.CollectConfig
	Logger   logger.Logger
	// Interactive allows prompting once the scripted inputs run out
	Interactive bool
}

// Collector runs collection pipelines against the current target
type Collector struct {
	session     session.Session
	downloader  *downloader.Downloader
	exporter    *export.Exporter
	console     *ui.Console
	prompter    *ui.Prompter
	geocoder    geocode.Reverser
	cfg         config.CollectConfig
	logger      logger.Logger
	interactive bool

	target   string
	targetID string
	handlers map[Command]handler
}

// run carries the per-invocation context of one command
type run struct {
	cmd   Command
	log   logger.Logger
	start time.Time
}

type handler func(ctx context.Context, r *run) error

// New creates a Collector
func New(opts Options) (*Collector, error) {
	switch {
	case opts.Session == nil:
		return nil, fmt.Errorf("collector requires a session")
	case opts.Downloader == nil:
		return nil, fmt.Errorf("collector requires a downloader")
	case opts.Exporter == nil:
		return nil, fmt.Errorf("collector requires an exporter")
	case opts.Console == nil:
		return nil, fmt.Errorf("collector requires a console")
	case opts.Prompter == nil:
		return nil, fmt.Errorf("collector requires a prompter")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	c := &Collector{
		session:     opts.Session,
		downloader:  opts.Downloader,
		exporter:    opts.Exporter,
		console:     opts.Console,
		prompter:    opts.Prompter,
		geocoder:    opts.Geocoder,
		cfg:         opts.Config,
		logger:      log.WithField("component", "collector"),
		interactive: opts.Interactive,
	}
	c.handlers = map[Command]handler{
		CmdCaptions:         c.captions,
		CmdComments:         c.comments,
		CmdFollowers:        c.followers,
		CmdFollowersSubset:  c.followersSubset,
		CmdFollowings:       c.followings,
		CmdFollowingsSubset: c.followingsSubset,
		CmdHashtags:         c.hashtags,
		CmdHighlights:       c.highlights,
		CmdInfo:             c.info,
		CmdInfoList:         c.infoList,
		CmdLikers:           c.likers,
		CmdLikes:            c.likes,
		CmdLocations:        c.locations,
		CmdPosts:            c.posts,
		CmdPostsData:        c.postsData,
		CmdPostsTagged:      c.postsTagged,
		CmdPostsTaggedData:  c.postsTaggedData,
		CmdProfilePic:       c.profilePic,
		CmdStories:          c.stories,
		CmdTagged:           c.tagged,
		CmdTaggedTarget:     c.taggedTarget,
		CmdTaggedWith:       c.taggedWith,
		CmdTarget:           c.changeTarget,
		CmdViewcount:        c.viewcount,
	}
	return c, nil
}

// Target returns the current target's username and pk
func (c *Collector) Target() (string, string) {
	return c.target, c.targetID
}

// Exporter returns the exporter whose toggles the shell controls
func (c *Collector) Exporter() *export.Exporter {
	return c.exporter
}

// SetTarget resolves username and makes it the current target. The
// previous target is kept when resolution fails.
func (c *Collector) SetTarget(ctx context.Context, username string) error {
	c.console.Status("Searching for " + username)
	defer c.console.ClearStatus()

	id, err := c.session.UserIDFromUsername(ctx, username)
	if err != nil {
		return errs.Fatal("resolve target", err)
	}
	fr, err := c.session.Friendship(ctx, id)
	if err != nil {
		return errs.Fatal("friendship", err)
	}

	c.target, c.targetID = username, id
	c.console.ClearStatus()
	c.console.Success("%s", TargetLine(username, id, fr))
	c.logger.InfoWithFields("Target set", map[string]interface{}{
		"target":    username,
		"target_id": id,
	})
	return nil
}

// TargetLine describes the target and its relation to the logged-in account
func TargetLine(username, id string, fr *session.Friendship) string {
	visibility := "(PUBLIC)"
	if fr.IsPrivate {
		visibility = "(PRIVATE)"
	}
	var relation string
	switch {
	case fr.Following && fr.FollowedBy:
		relation = "(FOLLOWING & FOLLOWED BY)"
	case fr.Following:
		relation = "(FOLLOWING)"
	case fr.FollowedBy:
		relation = "(FOLLOWED BY)"
	default:
		relation = "(NOT FOLLOWING & NOT FOLLOWED BY)"
	}
	return fmt.Sprintf("Target: %s [%s] %s %s", username, id, visibility, relation)
}

// Run executes cmd against the current target. Per-item failures are
// logged and never returned; fatal and validation errors are.
func (c *Collector) Run(ctx context.Context, cmd Command) error {
	h, ok := c.handlers[cmd]
	if !ok {
		return fmt.Errorf("no handler for command %d", cmd)
	}
	if c.targetID == "" && cmd != CmdTarget {
		return errs.Invalid("target", "No target set")
	}

	r := &run{
		cmd: cmd,
		log: c.logger.WithFields(map[string]interface{}{
			"run_id":  uuid.NewString(),
			"command": cmd.String(),
			"target":  c.target,
		}),
		start: time.Now(),
	}
	r.log.Debug("Command started")

	err := h(ctx, r)
	c.console.EndStatus()
	if err != nil {
		r.log.WithError(err).WarnWithFields("Command failed", map[string]interface{}{
			"fatal":   errs.IsFatal(err),
			"elapsed": time.Since(r.start),
		})
		return err
	}
	r.log.DebugWithFields("Command finished", map[string]interface{}{
		"elapsed": time.Since(r.start),
	})
	return nil
}

// Report prints the outcome of a failed command
func (c *Collector) Report(err error) {
	if err == nil {
		return
	}
	var apiErr *errs.Error
	switch {
	case errs.IsValidation(err):
		c.console.Error("%s", err.Error())
	case errors.As(err, &apiErr):
		c.console.Error("Error: %s", apiErr.Message)
		if apiErr.Code != 0 {
			c.console.Error("Code: %d", apiErr.Code)
		}
		if apiErr.Response != "" {
			c.console.Error("Response: %s", apiErr.Response)
		}
	default:
		c.console.Error("Error: %v", err)
	}
}

// summary logs the outcome of a fan-out pipeline
func (c *Collector) summary(r *run, succeeded, failed int) {
	logger.LogPipelineSummary(r.log, r.cmd.String(), c.target, succeeded, failed, time.Since(r.start))
}

// ask returns the next scripted input, or prompts when running
// interactively. No input yields the empty string.
func (c *Collector) ask(prompt string) (string, error) {
	if !c.interactive && c.prompter.Pending() == 0 {
		return "", nil
	}
	v, err := c.prompter.AskScripted(prompt)
	if errors.Is(err, session.ErrNoInput) {
		return "", nil
	}
	return v, err
}

// save writes `{target}_{suffix}` as JSON and TXT according to the toggles
func (c *Collector) save(data interface{}, t *export.Table, suffix, text string) error {
	if text == "" {
		text = suffix
	}
	saved, err := c.exporter.Save(c.target+"_"+suffix, data, t)
	if err != nil {
		return err
	}
	for _, path := range []string{saved.JSON, saved.TXT} {
		if path != "" {
			c.console.Success("Successfully saved %s %s to %s", c.target, text, filepath.Base(path))
		}
	}
	return nil
}

// printTable writes the table to the console in the default style
func (c *Collector) printTable(t *export.Table) {
	c.console.Println(t.Render("default"))
}

// requireJSON rejects commands whose only output is a JSON file
func (c *Collector) requireJSON() error {
	if !c.exporter.JSONEnabled() {
		return errs.Invalid("json", "JSON output is required")
	}
	return nil
}

// medias fetches the target's posts; failure aborts the command
func (c *Collector) medias(ctx context.Context) ([]session.Media, error) {
	posts, err := c.session.UserMedias(ctx, c.targetID)
	if err != nil {
		return nil, errs.Fatal("list posts", err)
	}
	return posts, nil
}

// usertagMedias fetches the posts the target is tagged in
func (c *Collector) usertagMedias(ctx context.Context) ([]session.Media, error) {
	posts, err := c.session.UsertagMedias(ctx, c.targetID)
	if err != nil {
		return nil, errs.Fatal("list tagged posts", err)
	}
	return posts, nil
}

func (c *Collector) options(label string, workers int, log logger.Logger, progress func(fanout.Event)) fanout.Options {
	return fanout.Options{
		Workers:    workers,
		Label:      label,
		OnProgress: progress,
		Logger:     log,
	}
}

func mediaKey(m session.Media) string {
	return m.ID
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func trimUsername(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}
