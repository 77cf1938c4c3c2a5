// Package collector implements the collection pipelines of the shell.
//
// Each Command maps to one pipeline. A pipeline fetches a base listing for
// the current target, optionally enriches every item through a bounded
// fan-out and merges the results before they are printed and exported.
//
// Merge policies:
//
//   - keyed: comments, likers, hashtags, locations and the tagged commands
//     produce a mapping from post id to results. Posts without results are
//     left out and keys keep the order of the base listing.
//   - flat: followers, followings, likes and viewcount keep the listing
//     order and compute rolling sums in a single pass.
//   - subset: followers-subset and followings-subset keep the target's
//     entries that also appear in a second user's listing, in the target's
//     order.
//
// Errors:
//
// A failing base listing aborts the command with an errors.FatalError.
// Rejected user input is an errors.ValidationError. A failing per-item call
// is logged and excluded from the output; it is never returned.
//
// Usage:
//
//	c, err := collector.New(collector.Options{
//	    Session:    client,
//	    Downloader: downloader.New(client, store, 0, log),
//	    Exporter:   export.New(store, cfg.Output),
//	    Console:    ui.NewConsole(os.Stdout),
//	    Prompter:   ui.NewPrompter(os.Stdin, os.Stdout, extras),
//	    Config:     cfg.Collect,
//	    Logger:     log,
//	})
//	if err := c.SetTarget(ctx, "username"); err != nil {
//	    log.Fatal(err.Error())
//	}
//	if err := c.Run(ctx, collector.CmdComments); err != nil {
//	    c.Report(err)
//	}
package collector
