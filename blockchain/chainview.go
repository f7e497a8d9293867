// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

// chainView provides a flat view of the best chain from its tip back to the
// genesis block.  Nodes are indexed by height, so ancestor lookups are
// constant time.
//
// The view is not safe for concurrent access.  The block index protects it
// with its own lock.
type chainView struct {
	nodes []*blockNode
}

// tip returns the current tip block node for the chain view.  It will return
// nil if there is no tip.
func (c *chainView) tip() *blockNode {
	if len(c.nodes) == 0 {
		return nil
	}

	return c.nodes[len(c.nodes)-1]
}

// height returns the height of the tip of the chain view.  It will return -1
// if there is no tip (which only happens if the chain view has not been
// initialized).
func (c *chainView) height() int32 {
	return int32(len(c.nodes) - 1)
}

// push extends the view by node, which must be a child of the tip.
func (c *chainView) push(node *blockNode) {
	c.nodes = append(c.nodes, node)
}

// pop removes and returns the tip.
func (c *chainView) pop() *blockNode {
	tip := c.tip()
	if tip == nil {
		return nil
	}
	c.nodes[len(c.nodes)-1] = nil
	c.nodes = c.nodes[:len(c.nodes)-1]
	return tip
}

// nodeByHeight returns the block node at the specified height.  Nil will be
// returned if the height does not exist.
func (c *chainView) nodeByHeight(height int32) *blockNode {
	if height < 0 || height >= int32(len(c.nodes)) {
		return nil
	}

	return c.nodes[height]
}
