// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been reworked into generics for the ledger's block roots.

// Package merkle provides a merkle tree over the transactions of a block. The
// root of the tree is recorded in the block header so the transactions can be
// validated against the header, and a proof can show a single transaction is
// part of a block without the rest of the block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of error variables for the tree.
var (
	ErrNoValues   = errors.New("cannot construct tree with no values")
	ErrNotInTree  = errors.New("value is not in the tree")
	ErrBadRoot    = errors.New("calculated root does not match the tree root")
	ErrBadProof   = errors.New("proof does not lead to the root")
	ErrProofOrder = errors.New("proof and order lengths differ")
)

// Hashable represents the behavior a value must exhibit to be a leaf.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// Proof orders tell the verifier which side a proof hash goes on.
const (
	ProofLeft  = 0
	ProofRight = 1
)

// =============================================================================

// Tree is a merkle tree of values of type T.
type Tree[T Hashable[T]] struct {
	Root       *Node[T]
	Leafs      []*Node[T]
	MerkleRoot []byte
	newHash    func() hash.Hash
}

// WithHashStrategy replaces the sha256 default used to combine nodes.
func WithHashStrategy[T Hashable[T]](newHash func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.newHash = newHash
	}
}

// NewTree constructs a tree from the specified values.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		newHash: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// RootHex returns the root hash hex encoded.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.MerkleRoot)
}

// Values returns the values the tree was built from, without the duplicate
// added to even out the leafs.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, len(t.Leafs))
	for _, leaf := range t.Leafs {
		if leaf.dup {
			continue
		}
		values = append(values, leaf.Value)
	}

	return values
}

// Verify recalculates every level of the tree from the values and checks
// the result against the root.
func (t *Tree[T]) Verify() error {
	root, err := t.Root.calculate()
	if err != nil {
		return err
	}

	if !bytes.Equal(root, t.MerkleRoot) {
		return ErrBadRoot
	}

	return nil
}

// Proof returns the sibling hashes from the value's leaf up to the root and
// the side each sibling is on.
func (t *Tree[T]) Proof(value T) ([][]byte, []int, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(value) {
			continue
		}

		var proof [][]byte
		var order []int

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			switch {
			case parent.Left == node:
				proof = append(proof, parent.Right.Hash)
				order = append(order, ProofRight)
			default:
				proof = append(proof, parent.Left.Hash)
				order = append(order, ProofLeft)
			}
			node = parent
		}

		return proof, order, nil
	}

	return nil, nil, ErrNotInTree
}

// VerifyProof checks the leaf hash combined with the proof produces the
// root. The tree isn't required, only the root from a block header.
func VerifyProof(leaf []byte, proof [][]byte, order []int, root []byte, newHash func() hash.Hash) error {
	if len(proof) != len(order) {
		return ErrProofOrder
	}

	sum := leaf
	for i, sibling := range proof {
		h := newHash()
		switch order[i] {
		case ProofLeft:
			h.Write(sibling)
			h.Write(sum)
		default:
			h.Write(sum)
			h.Write(sibling)
		}
		sum = h.Sum(nil)
	}

	if !bytes.Equal(sum, root) {
		return ErrBadProof
	}

	return nil
}

// generate builds the leafs and the levels above them. An odd number of
// values has the last one duplicated.
func (t *Tree[T]) generate(values []T) error {
	if len(values) == 0 {
		return ErrNoValues
	}

	leafs := make([]*Node[T], 0, len(values)+1)
	for _, value := range values {
		sum, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{Tree: t, Hash: sum, Value: value, leaf: true})
	}

	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node[T]{Tree: t, Hash: last.Hash, Value: last.Value, leaf: true, dup: true})
	}

	root := t.buildLevel(leafs)

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// buildLevel pairs the nodes of one level into their parents until a single
// root remains.
func (t *Tree[T]) buildLevel(nodes []*Node[T]) *Node[T] {
	parents := make([]*Node[T], 0, (len(nodes)+1)/2)

	for i := 0; i < len(nodes); i += 2 {
		left, right := nodes[i], nodes[i]
		if i+1 < len(nodes) {
			right = nodes[i+1]
		}

		parent := Node[T]{
			Tree:  t,
			Left:  left,
			Right: right,
			Hash:  t.combine(left.Hash, right.Hash),
		}

		left.Parent = &parent
		right.Parent = &parent
		parents = append(parents, &parent)
	}

	if len(parents) == 1 {
		return parents[0]
	}

	return t.buildLevel(parents)
}

func (t *Tree[T]) combine(left []byte, right []byte) []byte {
	h := t.newHash()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// =============================================================================

// Node is a leaf or an inner node of the tree.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
	dup    bool
}

// calculate walks down to the leafs and hashes its way back up.
func (n *Node[T]) calculate() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	left, err := n.Left.calculate()
	if err != nil {
		return nil, err
	}

	right, err := n.Right.calculate()
	if err != nil {
		return nil, err
	}

	return n.Tree.combine(left, right), nil
}
