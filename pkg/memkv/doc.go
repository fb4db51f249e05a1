// Package memkv provides a thread-safe in-memory byte store with per-key TTL.
//
// Properties:
//   - sharded map guarded by RW mutexes (256 shards by default)
//   - TTL with a background goroutine removing expired keys, plus lazy
//     expiry on read
//   - values are copied in and out
//   - optional cap on the total size of stored values (Options.MaxBytes)
//   - atomic counters exposed through Metrics
package memkv
