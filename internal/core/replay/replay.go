// Package replay applies plans to an in-memory client and server tree so that
// a raw plan and its optimized form can be compared by their end state.
package replay

import (
	"sort"

	"github.com/Ning0612/drivesync/internal/domain"
)

// Tree maps a key (directory path or file name) to its checksum
type Tree map[string]string

// Clone returns a copy of the tree
func (t Tree) Clone() Tree {
	c := make(Tree, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// State is the pair of trees a plan is applied to
type State struct {
	Server Tree
	Client Tree
}

// StateOf builds a state from the current version sets of both sides
func StateOf[V domain.Version](server, client []V) State {
	s := State{Server: make(Tree, len(server)), Client: make(Tree, len(client))}
	for _, v := range server {
		s.Server[v.Key()] = v.Sum()
	}
	for _, v := range client {
		s.Client[v.Key()] = v.Sum()
	}
	return s
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	return State{Server: s.Server.Clone(), Client: s.Client.Clone()}
}

// Apply runs the server list, then the client list, against a copy of state
func Apply[V domain.Version](state State, plan domain.Plan[V]) State {
	out := state.Clone()
	for _, a := range plan.ForServer {
		apply(a, out.Server, out.Client)
	}
	for _, a := range plan.ForClient {
		apply(a, out.Client, out.Server)
	}
	return out
}

// apply executes a on own; uploads land on the opposite side
func apply[V domain.Version](a domain.Action[V], own, other Tree) {
	switch a.Kind {
	case domain.ActionRemove:
		if a.Version != nil {
			removeTree(own, (*a.Version).Key())
		}
	case domain.ActionEdit:
		if a.Version != nil && a.NewVersion != nil {
			moveTree(own, (*a.Version).Key(), (*a.NewVersion).Key())
		}
		set(own, a.NewVersion)
	case domain.ActionSync, domain.ActionDownload, domain.ActionAcknowledge:
		set(own, a.NewVersion)
	case domain.ActionUpload:
		set(other, a.NewVersion)
	}
}

func set[V domain.Version](t Tree, v *V) {
	if v != nil {
		t[(*v).Key()] = (*v).Sum()
	}
}

func removeTree(t Tree, key string) {
	delete(t, key)
	for k := range t {
		if domain.IsDescendantPath(k, key) {
			delete(t, k)
		}
	}
}

func moveTree(t Tree, from, to string) {
	if from == to {
		return
	}
	moved := make(Tree)
	for k, v := range t {
		if domain.IsDescendantPath(k, from) {
			moved[domain.ChildPrefix(to)+k[len(domain.ChildPrefix(from)):]] = v
			delete(t, k)
		}
	}
	delete(t, from)
	for k, v := range moved {
		t[k] = v
	}
}

// Difference is a key whose end state differs between two replays
type Difference struct {
	Side      string
	Key       string
	Raw       string
	Optimized string

	// Expected marks a difference caused by work deferred to the next cycle
	Expected bool
}

// Compare lists the keys whose checksum differs between two states, sorted
func Compare(raw, optimized State) []Difference {
	var diffs []Difference
	diffs = append(diffs, compareTree("server", raw.Server, optimized.Server)...)
	diffs = append(diffs, compareTree("client", raw.Client, optimized.Client)...)
	return diffs
}

func compareTree(side string, raw, optimized Tree) []Difference {
	keys := make(map[string]bool)
	for k := range raw {
		keys[k] = true
	}
	for k := range optimized {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var diffs []Difference
	for _, k := range sorted {
		r, rok := raw[k]
		o, ook := optimized[k]
		if rok == ook && r == o {
			continue
		}
		diffs = append(diffs, Difference{Side: side, Key: k, Raw: describe(r, rok), Optimized: describe(o, ook)})
	}
	return diffs
}

func describe(sum string, ok bool) string {
	if !ok {
		return "<absent>"
	}
	return sum
}

// Verify replays both plans from initial and returns the differences in end state.
// Differences on keys whose client upload or download was dropped without a
// replacement are flagged Expected.
func Verify[V domain.Version](initial State, raw, optimized domain.Plan[V]) []Difference {
	diffs := Compare(Apply(initial, raw), Apply(initial, optimized))
	if len(diffs) == 0 {
		return nil
	}
	deferred := Deferred(raw, optimized)
	for i := range diffs {
		diffs[i].Expected = deferred[diffs[i].Key]
	}
	return diffs
}

// Deferred returns the keys of client uploads and downloads that the optimized
// plan dropped without any other action on the same key
func Deferred[V domain.Version](raw, optimized domain.Plan[V]) map[string]bool {
	kept := make(map[string]bool)
	targeted := make(map[string]bool)
	for _, list := range [][]domain.Action[V]{optimized.ForServer, optimized.ForClient} {
		for _, a := range list {
			kept[a.ID.String()] = true
			targeted[a.Key()] = true
		}
	}

	deferred := make(map[string]bool)
	for _, a := range raw.ForClient {
		if a.Kind != domain.ActionUpload && a.Kind != domain.ActionDownload {
			continue
		}
		if !kept[a.ID.String()] && !targeted[a.Key()] {
			deferred[a.Key()] = true
		}
	}
	return deferred
}

// Unexpected filters out expected differences
func Unexpected(diffs []Difference) []Difference {
	var out []Difference
	for _, d := range diffs {
		if !d.Expected {
			out = append(out, d)
		}
	}
	return out
}
