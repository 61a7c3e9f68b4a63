// Package bundle exports optimized packs as integrity-verified bundles.
//
// A bundle is the pack archive split into fixed-size chunks:
//   - every chunk is hashed with SHA-256 and the hashes form a Merkle tree
//     whose root is carried in the bundle header
//   - chunks are LZ4 compressed when that makes them smaller
//   - chunks can be sealed with ChaCha20-Poly1305 (see package seal)
//   - the header can be signed by a publisher identity
//
// Chunks travel in length-prefixed batches so the same encoding serves
// bundle files on disk and bundle streams over the network.
package bundle
