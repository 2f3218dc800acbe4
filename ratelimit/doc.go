// Package ratelimit provides token-bucket throttling for the engine.
//
// The dispatcher uses a limiter to cap dispatches per interval, and
// capability adapters use one to stay under provider quotas. Buckets
// refill continuously over their window; Release returns a token early
// for semaphore-style use.
package ratelimit
