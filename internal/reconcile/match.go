package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Confirmation status values.
const (
	StatusConfirmed   = "CONFIRMED"
	StatusUnconfirmed = "UNCONFIRMED"
	StatusUnresolved  = "UNRESOLVED"
)

// Record is the reconciler's view of one current intelligence record:
// just the fields matching needs. Name must already be normalized.
type Record struct {
	ID          int64
	SourceShort string
	Name        string
	Flag        string
	// Identifiers maps identifier field name to the verbatim stored value.
	// Empty values are absent.
	Identifiers map[string]string
}

// Group is one cluster of co-referring records.
type Group struct {
	Key     string
	Status  string
	Sources int
	Members []Record
}

// Two records co-refer iff they agree on normalized name AND flag (both
// non-empty), or they share any external identifier field with the same
// verbatim value.

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// Cluster partitions records into co-reference groups. It is a pure
// function of its input: the same record set always yields the same groups
// with the same keys, regardless of input order.
func Cluster(records []Record) []Group {
	uf := newUnionFind(len(records))

	nameFlag := make(map[string][]int)
	identifier := make(map[string][]int)
	for i, r := range records {
		if r.Name != "" && r.Flag != "" {
			nameFlag[r.Name+"\x1f"+r.Flag] = append(nameFlag[r.Name+"\x1f"+r.Flag], i)
		}
		for field, value := range r.Identifiers {
			k := field + "\x1f" + value
			identifier[k] = append(identifier[k], i)
		}
	}
	for _, bucket := range nameFlag {
		for _, i := range bucket[1:] {
			uf.union(bucket[0], i)
		}
	}
	for _, bucket := range identifier {
		for _, i := range bucket[1:] {
			uf.union(bucket[0], i)
		}
	}

	byRoot := make(map[int][]Record)
	for i, r := range records {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], r)
	}

	groups := make([]Group, 0, len(byRoot))
	for _, members := range byRoot {
		groups = append(groups, buildGroup(members))
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func buildGroup(members []Record) Group {
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	sources := make(map[string]struct{})
	for _, m := range members {
		sources[m.SourceShort] = struct{}{}
	}

	status := StatusUnconfirmed
	if len(sources) > 1 {
		status = StatusConfirmed
	}
	if hasContradiction(members) {
		status = StatusUnresolved
	}

	return Group{
		Key:     groupKey(members),
		Status:  status,
		Sources: len(sources),
		Members: members,
	}
}

// hasContradiction reports whether the cluster carries two distinct
// verbatim values for the same identifier field. Such a cluster is flagged
// UNRESOLVED rather than silently merged.
func hasContradiction(members []Record) bool {
	seen := make(map[string]string)
	for _, m := range members {
		for field, value := range m.Identifiers {
			if prev, ok := seen[field]; ok && prev != value {
				return true
			}
			seen[field] = value
		}
	}
	return false
}

// groupKey derives a stable key for the cluster: the smallest member
// signature, hashed. Two distinct clusters can never share a signature —
// a shared signature is exactly what merges records into one cluster.
func groupKey(members []Record) string {
	best := ""
	for _, m := range members {
		for _, sig := range signatures(m) {
			if best == "" || sig < best {
				best = sig
			}
		}
	}
	sum := sha256.Sum256([]byte(best))
	return hex.EncodeToString(sum[:])
}

func signatures(r Record) []string {
	var sigs []string
	if r.Name != "" && r.Flag != "" {
		sigs = append(sigs, fmt.Sprintf("nf\x1f%s\x1f%s", r.Name, r.Flag))
	}
	for field, value := range r.Identifiers {
		sigs = append(sigs, fmt.Sprintf("id\x1f%s\x1f%s", field, value))
	}
	return sigs
}
