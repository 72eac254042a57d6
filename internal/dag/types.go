package dag

import "sync"

// Graph holds string-keyed vertices and the edges between them. It is safe
// for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node
	// order lists IDs as they were added; a node's seq is its index here.
	order []string
}

// node is one vertex. Edges are stored in both directions so dependencies
// and dependents can be listed without a scan.
type node struct {
	id         string
	seq        int
	deps       map[string]*node // predecessors
	dependents map[string]*node // successors
}
