// Package ratelimit throttles outbound requests.
//
// TokenBucket refills continuously and absorbs short bursts; it guards the
// remote API. SlidingWindow caps requests in any window span and guards the
// reverse geocoder, whose usage policy allows one request per second.
// Registry maps endpoint names to limiters so that endpoints with tighter
// quotas get their own bucket on top of the shared one.
package ratelimit
