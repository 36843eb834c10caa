package tdbuild

import (
	"context"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// cycleNode adapts a target name into a gonum graph.Node.
type cycleNode struct {
	id   int64
	name TargetName
}

func (n *cycleNode) ID() int64 { return n.id }

// DetectCycles builds a directed graph from each rule's statically-declared
// prerequisites (lazy PrereqSources are skipped: they may depend on build-
// time state this pre-check cannot see) and runs a topological sort over it,
// exactly as distr1/distri's batch scheduler does to find and report
// cyclic package dependencies before building. It returns the target names
// in one offending cycle, or nil if the static graph is acyclic.
//
// This is the optional strengthening spec.md §9 recommends, not a
// guarantee: dynamically generated rules and targets requested at build time
// via BuildContext.Coordinator are invisible to it. A real cycle not caught
// here still manifests as the deadlock spec.md §9 describes.
func DetectCycles(rules map[TargetName]*Rule) []TargetName {
	if len(rules) == 0 {
		return nil
	}

	g := simple.NewDirectedGraph()
	nodes := make(map[TargetName]*cycleNode, len(rules))
	var nextID int64
	nodeFor := func(name TargetName) *cycleNode {
		if n, ok := nodes[name]; ok {
			return n
		}
		n := &cycleNode{id: nextID, name: name}
		nextID++
		nodes[name] = n
		g.AddNode(n)
		return n
	}

	for name, rule := range rules {
		from := nodeFor(name)
		src, ok := rule.Prereqs.(staticPrereqs)
		if !ok {
			continue // lazy prereq source: not visible to a static pre-check
		}
		list, _ := src.Prereqs(context.Background())
		for _, dep := range list {
			if _, declared := rules[dep]; !declared {
				continue // prereq has no rule of its own; can't be part of a cycle among rules
			}
			g.SetEdge(g.NewEdge(from, nodeFor(dep)))
		}
	}

	if _, err := topo.Sort(g); err != nil {
		if uo, ok := err.(topo.Unorderable); ok && len(uo) > 0 {
			var names []TargetName
			for _, n := range uo[0] {
				names = append(names, n.(*cycleNode).name)
			}
			return names
		}
	}
	return nil
}
