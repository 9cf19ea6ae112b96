// Package redistruct implements Redis-backed distributed collections with a
// cold, single-result stream API (see package rx).
//
// Components:
//   - Client: owns the redis.UniversalClient, logger, hooks and the eviction
//     scheduler. Handles are created from it and share its connection pool.
//   - SetCache[V]: a set whose members may each carry their own TTL.
//   - BlockingDeque[V]: a list with blocking head/tail takes and timed polls.
//   - Codec[V]: (de)serializes V <-> []byte. Member identity is the encoded
//     bytes, so codecs must be deterministic.
//
// Keys:
//
//	<name>  - sorted set for SetCache (member -> expiration unix ms)
//	<name>  - list for BlockingDeque
//
// Every operation returns an rx.Mono. Nothing touches Redis until the Mono is
// subscribed or blocked on:
//
//	set, _ := redistruct.GetSetCache[string](client, "sessions")
//	added, err := rx.Sync(ctx, set.AddTTL("abc", time.Minute))
package redistruct
