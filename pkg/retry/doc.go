// Package retry runs remote operations under a retry Policy.
//
// Only typed errors (pkg/errors.Error) with a retryable type are retried:
// network failures, rate limits and server errors. The default backoff
// picks its curve by error type and honors a server-provided Retry-After
// on rate limit responses.
//
//	policy := retry.FromConfig(cfg.Retry, log)
//	info, err := retry.DoWithResult(ctx, policy, func(ctx context.Context) (*UserInfo, error) {
//		return client.fetchUserInfo(ctx, pk)
//	})
package retry
