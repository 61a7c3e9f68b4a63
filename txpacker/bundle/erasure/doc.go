// Package erasure adds Reed-Solomon parity to bundle payloads.
//
// With d data shards and p parity shards any p shards can be lost or
// corrupted and the payload is still recoverable. Each shard carries its
// SHA-256 hash so corrupted shards are detected and treated as lost.
package erasure
