// Package txpacker optimizes Minecraft Bedrock texture packs.
//
// A Packer reads a .mcpack archive, repairs a broken manifest when it has
// to, runs every texture through the tiered optimizer in package optimize
// and writes the rewritten archive. Processed packs can then be exported as
// verified bundles (package bundle) and shared over QUIC (package share).
package txpacker
