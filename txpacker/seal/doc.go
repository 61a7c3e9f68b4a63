// Package seal encrypts bundle chunks at rest and in transit.
//
// Keys are 32 bytes. A key is derived from a passphrase with Argon2id,
// salted with the pack UUID, and expanded with HKDF-SHA256. Chunks are
// sealed with ChaCha20-Poly1305 (RFC 8439).
package seal
