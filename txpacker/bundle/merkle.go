package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrMerkleEmpty = errors.New("merkle: no chunks provided")

// MerkleTree commits to the chunk hashes of a bundle. The root goes into the
// bundle header; receivers rebuild it from the chunks they verified.
type MerkleTree struct {
	nodes [][]byte // implicit binary tree, root at 0
}

// BuildMerkleTree builds a tree over chunk hashes, padding the leaf level to
// a power of two with the hash of the empty string.
func BuildMerkleTree(chunkHashes [][]byte) (*MerkleTree, error) {
	if len(chunkHashes) == 0 {
		return nil, ErrMerkleEmpty
	}

	n := 1
	for n < len(chunkHashes) {
		n *= 2
	}
	empty := sha256.Sum256(nil)

	nodes := make([][]byte, 2*n-1)
	for i := 0; i < n; i++ {
		if i < len(chunkHashes) {
			nodes[n-1+i] = chunkHashes[i]
		} else {
			nodes[n-1+i] = empty[:]
		}
	}
	for i := n - 2; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &MerkleTree{nodes: nodes}, nil
}

// MerkleRoot is a shortcut for building a tree and taking its root.
func MerkleRoot(chunkHashes [][]byte) ([]byte, error) {
	tree, err := BuildMerkleTree(chunkHashes)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

func (m *MerkleTree) Root() []byte    { return m.nodes[0] }
func (m *MerkleTree) RootHex() string { return hex.EncodeToString(m.nodes[0]) }

// HashChunk is the SHA-256 of a chunk.
func HashChunk(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}
