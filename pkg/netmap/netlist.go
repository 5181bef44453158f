// Package netmap answers which layout elements share an electrical net.
package netmap

import (
	"slices"
	"sort"
)

// Map is a read-only connectivity oracle over element ids
type Map interface {
	// AreIDsConnected reports whether a and b are on the same net.
	AreIDsConnected(a, b string) bool
	// AreAllIDsConnected reports whether every id is on one net.
	AreAllIDsConnected(ids ...string) bool
	// NetForID returns the net an id belongs to.
	NetForID(id string) (string, bool)
	// IDsOnNet returns every id of a net in sorted order.
	IDsOnNet(net string) []string
}

// Netlist tracks connectivity between element ids using a union-find
// structure. Once built it is safe for concurrent readers as long as no
// further Connect calls are made.
type Netlist struct {
	parent map[string]string // id -> parent id
	rank   map[string]int    // rank for union by rank
	named  map[string]bool   // ids that name a net

	nets map[string][]string // root -> members, built by Finalize
}

// NewNetlist creates an empty netlist
func NewNetlist() *Netlist {
	return &Netlist{
		parent: make(map[string]string),
		rank:   make(map[string]int),
		named:  make(map[string]bool),
	}
}

// Add registers ids as isolated members if they are not known yet
func (nl *Netlist) Add(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := nl.parent[id]; !ok {
			nl.parent[id] = id
			nl.rank[id] = 0
		}
	}
}

// AddNet registers id as the name of a net. NetForID prefers net names over
// arbitrary member ids.
func (nl *Netlist) AddNet(id string) {
	nl.Add(id)
	if id != "" {
		nl.named[id] = true
	}
}

// Connect merges the nets of all given ids. Empty ids are ignored.
func (nl *Netlist) Connect(ids ...string) {
	nl.nets = nil

	first := ""
	for _, id := range ids {
		if id == "" {
			continue
		}
		nl.Add(id)
		if first == "" {
			first = id
			continue
		}
		nl.union(first, id)
	}
}

func (nl *Netlist) union(a, b string) {
	rootA := nl.Find(a)
	rootB := nl.Find(b)
	if rootA == rootB {
		return
	}

	// Union by rank
	if nl.rank[rootA] < nl.rank[rootB] {
		nl.parent[rootA] = rootB
	} else if nl.rank[rootA] > nl.rank[rootB] {
		nl.parent[rootB] = rootA
	} else {
		nl.parent[rootB] = rootA
		nl.rank[rootA]++
	}
}

// Find returns the representative id of the net containing id, compressing
// the path on the way. Unknown ids are their own representative.
func (nl *Netlist) Find(id string) string {
	root := nl.root(id)

	// Path compression: point every node on the path directly at root
	current := id
	for current != root {
		next := nl.parent[current]
		nl.parent[current] = root
		current = next
	}
	return root
}

// root walks to the representative without modifying the structure
func (nl *Netlist) root(id string) string {
	if _, ok := nl.parent[id]; !ok {
		return id
	}
	r := id
	for nl.parent[r] != r {
		r = nl.parent[r]
	}
	return r
}

// Finalize groups members by net and compresses every path. After Finalize
// the netlist is read-only until the next Connect.
func (nl *Netlist) Finalize() {
	nl.nets = make(map[string][]string)
	for id := range nl.parent {
		r := nl.Find(id)
		nl.nets[r] = append(nl.nets[r], id)
	}
	for _, members := range nl.nets {
		sort.Strings(members)
	}
}

// Known reports whether id has been added to the netlist
func (nl *Netlist) Known(id string) bool {
	_, ok := nl.parent[id]
	return ok
}

// AreIDsConnected reports whether a and b share a net. An id is always
// connected to itself.
func (nl *Netlist) AreIDsConnected(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if !nl.Known(a) || !nl.Known(b) {
		return false
	}
	return nl.root(a) == nl.root(b)
}

// AreAllIDsConnected reports whether every id shares one net. Fewer than two
// ids are trivially connected.
func (nl *Netlist) AreAllIDsConnected(ids ...string) bool {
	for i := 1; i < len(ids); i++ {
		if !nl.AreIDsConnected(ids[0], ids[i]) {
			return false
		}
	}
	return true
}

// NetForID returns the name of the net containing id. The smallest net name
// in the group wins; groups without a named net use their smallest member.
func (nl *Netlist) NetForID(id string) (string, bool) {
	if !nl.Known(id) {
		return "", false
	}
	members := nl.members(nl.root(id))

	for _, m := range members {
		if nl.named[m] {
			return m, true
		}
	}
	return members[0], true
}

// IDsOnNet returns every member of the net named net, sorted
func (nl *Netlist) IDsOnNet(net string) []string {
	if !nl.Known(net) {
		return nil
	}
	return slices.Clone(nl.members(nl.root(net)))
}

func (nl *Netlist) members(root string) []string {
	if nl.nets != nil {
		return nl.nets[root]
	}
	var out []string
	for id := range nl.parent {
		if nl.root(id) == root {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// NetCount returns the number of distinct nets, isolated ids included
func (nl *Netlist) NetCount() int {
	roots := make(map[string]struct{})
	for id := range nl.parent {
		roots[nl.root(id)] = struct{}{}
	}
	return len(roots)
}
