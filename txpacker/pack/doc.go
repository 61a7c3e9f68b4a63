// Package pack reads, validates and repairs texture pack archives (.mcpack).
//
// A pack is a zip archive with a manifest.json somewhere inside it and,
// usually, a pack_icon.png. Parse extracts the pack header, Validate lists
// everything wrong with the manifest, and Fix rewrites the archive with a
// repaired manifest at its root.
package pack
