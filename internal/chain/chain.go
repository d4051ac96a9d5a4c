// Package chain implements the BuildSet chain structure: an immutable
// singly-linked sequence of cohort nodes, each carrying the cohort's
// builders and their already-created requests. It knows nothing about
// BuildRequest, Builder, or the orchestrator — only the minimal Request
// shape needed to wire completion and advance a chain.
package chain

import "fmt"

// Request is the minimal shape a unit of work must have to take part in a
// Chain: the name of the builder it was created for, and a signal that
// closes exactly once the unit reaches a terminal result.
type Request interface {
	BuilderName() string
	Done() <-chan struct{}
}

// Node holds one cohort's builders and their pre-created requests, plus a
// link to the following node. Requests has the same cardinality and
// ordering as Cohort: Requests[i] belongs to the builder Cohort[i].
type Node struct {
	Cohort   []string
	Requests []Request
	Next     *Node // nil at the terminal (sentinel) node
}

// Single reports whether this node represents a singleton cohort.
func (n *Node) Single() bool { return len(n.Requests) == 1 }

// Chain is an immutable singly-linked sequence of Nodes. Exactly one node
// is the head.
type Chain struct {
	Head *Node
}

// Build constructs a Chain from an ordered list of cohorts (as produced by
// plan.Plan, flattened to builder names) and a builder -> request lookup.
// Nodes are wired back-to-front, as distri's cycle-broken package graph is
// walked once topologically sorted: by the time a node is constructed, its
// Next is already complete, so the last node built becomes the head.
func Build(cohorts [][]string, requestFor map[string]Request) (*Chain, error) {
	var next *Node
	for i := len(cohorts) - 1; i >= 0; i-- {
		cohort := cohorts[i]
		reqs := make([]Request, len(cohort))
		for j, b := range cohort {
			r, ok := requestFor[b]
			if !ok {
				return nil, fmt.Errorf("chain: no request created for builder %q", b)
			}
			reqs[j] = r
		}
		next = &Node{
			Cohort:   append([]string(nil), cohort...),
			Requests: reqs,
			Next:     next,
		}
	}
	return &Chain{Head: next}, nil
}

// Traverse calls fn for every node from the head to the terminal sentinel.
func (c *Chain) Traverse(fn func(*Node)) {
	for n := c.Head; n != nil; n = n.Next {
		fn(n)
	}
}

// FlattenRequests returns every request in the chain in submission order,
// expanding parallel cohorts in their cohort-internal order.
func (c *Chain) FlattenRequests() []Request {
	var all []Request
	c.Traverse(func(n *Node) {
		all = append(all, n.Requests...)
	})
	return all
}

// CompletionSignal returns a channel that closes once every request in n's
// cohort has reached a terminal result. A single-request node exposes that
// request's own Done channel directly, with no extra goroutine. It is a
// convenience for callers that only need to know "this cohort is done" and
// have nowhere else to derive that from; a driver that must make a decision
// atomically with the completion that produced it (such as buildset's
// StopOnFirstFailure gate) should derive cohort-drain directly from its own
// per-request completion callback instead, since a goroutine woken by this
// channel has no ordering guarantee relative to those callbacks.
func (n *Node) CompletionSignal() <-chan struct{} {
	if n.Single() {
		return n.Requests[0].Done()
	}
	out := make(chan struct{})
	go func() {
		for _, r := range n.Requests {
			<-r.Done()
		}
		close(out)
	}()
	return out
}
