// Package instagram implements session.Session over the mobile private API.
//
// The Client keeps a cookie jar and a generated device identity that
// survive restarts through Settings and LoadSettings. Each endpoint has its
// own rate limiter from ratelimit.Registry, and every call runs under the
// configured retry policy. Listing calls follow max_id cursors until the
// collection is exhausted.
//
//	client, err := instagram.NewClient(cfg, log)
//	if err != nil {
//		return err
//	}
//	if err := session.LoginWithRetry(ctx, client, user, pass, "", prompt, log); err != nil {
//		return err
//	}
//	followers, err := client.Followers(ctx, pk)
package instagram
