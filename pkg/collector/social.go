package collector

import (
	"context"
	"errors"
	"fmt"

	errs "igosint/pkg/errors"
	"igosint/pkg/export"
	"igosint/pkg/session"
)

type listFunc func(ctx context.Context, pk string) ([]session.User, error)

func (c *Collector) followers(ctx context.Context, r *run) error {
	return c.userList(ctx, c.session.Followers, "followers")
}

func (c *Collector) followings(ctx context.Context, r *run) error {
	return c.userList(ctx, c.session.Following, "followings")
}

func (c *Collector) followersSubset(ctx context.Context, r *run) error {
	return c.userSubset(ctx, r, c.session.Followers, "followers")
}

func (c *Collector) followingsSubset(ctx context.Context, r *run) error {
	return c.userSubset(ctx, r, c.session.Following, "followings")
}

// userList prints and saves one full listing of the target
func (c *Collector) userList(ctx context.Context, list listFunc, kind string) error {
	users, err := list(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("list "+kind, err)
	}

	t := usersTable(users)
	c.printTable(t)
	c.console.Success("Found %d %s", len(users), kind)
	return c.save(users, t, kind, "")
}

// userSubset keeps the target's entries that also appear in a second
// user's listing, in the target's order
func (c *Collector) userSubset(ctx context.Context, r *run, list listFunc, kind string) error {
	target2, err := c.ask("Enter second target username: ")
	if err != nil {
		return err
	}
	target2 = trimUsername(target2)
	if target2 == "" {
		return errs.Invalid("target2", "No second target given")
	}

	target2ID, err := c.session.UserIDFromUsername(ctx, target2)
	if errors.Is(err, session.ErrUserNotFound) {
		return errs.Invalid("target2", "Error: user %s not found", target2)
	}
	if err != nil {
		return errs.Fatal("resolve "+target2, err)
	}

	first, err := list(ctx, c.targetID)
	if err != nil {
		return errs.Fatal("list "+kind, err)
	}
	second, err := list(ctx, target2ID)
	if err != nil {
		return errs.Fatal(fmt.Sprintf("list %s of %s", kind, target2), err)
	}

	common := Intersect(first, second, func(u session.User) string { return u.PK })
	r.log.DebugWithFields("Listings intersected", map[string]interface{}{
		"target2": target2,
		"first":   len(first),
		"second":  len(second),
		"common":  len(common),
	})

	t := usersTable(common)
	c.printTable(t)
	c.console.Success("Found %d common %s", len(common), kind)
	return c.save(common, t,
		fmt.Sprintf("%s-subset_%s", kind, target2),
		fmt.Sprintf("and %s %s subset", target2, kind))
}

func usersTable(users []session.User) *export.Table {
	t := export.NewTable("pk", "username", "full_name")
	for _, u := range users {
		t.AddRow(u.PK, u.Username, u.FullName)
	}
	return t
}
