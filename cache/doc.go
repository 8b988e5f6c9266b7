// Package cache provides a TTL key/value cache with two interchangeable
// backends and a memoization helper for lookup functions.
//
// # Stores
//
// The [Store] interface is implemented by:
//
//   - [Transient] is an in-process map guarded by a single mutex. Values are
//     stored as-is. Expired entries are evicted lazily on read and, once
//     [Transient.Start] is called, by a periodic sweep. [Transient.Stats] and
//     [Transient.Cleanup] expose diagnostics.
//
//   - [Durable] encodes each entry with msgpack as a record holding the
//     value, its creation time and its expiry, and writes it to a
//     [storage.Medium] under a namespace prefix (see [WithNamespace]). Values come back as
//     [Raw] and are decoded by [GetAs]. [Durable.Clear] removes only keys in
//     its own namespace. There is no sweep; stale records are removed when
//     next read.
//
//   - [Tiered] chains stores, for example a Transient L1 in front of a
//     Durable L2.
//
// # Errors
//
// Store operations never return errors. A durable read that fails because
// the medium is down or the record is corrupt is logged and reported as a
// miss by [Store.Get]. Callers that need to tell the two apart use
// [Store.Lookup], whose [Result] carries [StatusDegraded] and an error
// marked with [ErrMediumUnavailable] or [ErrSerialization]:
//
//	res := store.Lookup(ctx, key)
//	if res.Status == cache.StatusDegraded && errors.Is(res.Err, cache.ErrMediumUnavailable) {
//	    // running without the durable cache
//	}
//
// # Memoization
//
// [Cached] wraps a function so results are served from a [Layer]:
//
//	fetchArticle := cache.Cached(layer, api.GetArticle, cache.Options[int64]{
//	    Key: keys.Article,
//	    TTL: 10 * time.Minute,
//	})
//
// Only successful results are stored. Concurrent misses for the same key
// each call the wrapped function unless [Options.Dedupe] is set.
//
// # Time
//
// All expiry decisions use the clock passed with [WithClock], which defaults
// to the wall clock. Tests pass clock.NewMock from github.com/benbjohnson/clock.
package cache
