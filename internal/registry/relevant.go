package registry

import (
	"fmt"

	"github.com/specialistvlad/etlgen/internal/dag"
)

// RelevantBuilders returns the builders of the requested kinds and of every
// kind they transitively require. Each builder appears after all builders
// it requires; ties follow registration order.
func (r *Registry) RelevantBuilders(requested []string) ([]Builder, error) {
	included := make(map[string]bool)
	queue := make([]string, 0, len(requested))
	for _, kind := range requested {
		if _, ok := r.builders[kind]; !ok {
			return nil, &MissingBuilderError{Kind: kind}
		}
		if !included[kind] {
			included[kind] = true
			queue = append(queue, kind)
		}
	}
	for len(queue) > 0 {
		kind := queue[0]
		queue = queue[1:]
		for _, req := range r.builders[kind].RequiredKinds() {
			if _, ok := r.builders[req]; !ok {
				return nil, &MissingBuilderError{Kind: req, RequiredBy: kind}
			}
			if !included[req] {
				included[req] = true
				queue = append(queue, req)
			}
		}
	}

	g, err := r.kindGraph(included)
	if err != nil {
		return nil, err
	}
	if err := g.DetectCycles(); err != nil {
		return nil, fmt.Errorf("constraint requirements are not acyclic: %w", err)
	}
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("constraint requirements are not acyclic: %w", err)
	}

	out := make([]Builder, len(sorted))
	for i, kind := range sorted {
		out[i] = r.builders[kind]
	}
	return out, nil
}

// kindGraph builds the requirement graph over the included kinds. An edge
// req -> kind means kind requires req.
func (r *Registry) kindGraph(included map[string]bool) (*dag.Graph, error) {
	g := dag.New()
	for _, kind := range r.order {
		if included[kind] {
			g.AddNode(kind)
		}
	}
	for _, kind := range r.order {
		if !included[kind] {
			continue
		}
		for _, req := range r.builders[kind].RequiredKinds() {
			if req == kind {
				return nil, fmt.Errorf("constraint '%s' requires itself: %w", kind, dag.ErrCycle)
			}
			if err := g.AddEdge(req, kind); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
