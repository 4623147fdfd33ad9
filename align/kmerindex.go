package align

import (
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/strgraph/graph"
)

// kmerPos is one occurrence of a k-mer within the graph, named by the
// node and offset its first base sits at.
type kmerPos struct {
	node   int
	offset int
}

// KmerIndex is an exact-match seed index over a locus graph. It is
// built once per locus and shared read-only across alignment calls.
type KmerIndex struct {
	k     int
	table map[uint64][]kmerPos
}

// BuildKmerIndex indexes every k-mer spelled by some path through the
// graph: from each starting position, bases are collected along node
// sequences and across successor edges (self-loops unroll naturally,
// one recursion per repeat copy) until k bases accumulate. Indexing
// across node boundaries is what lets short flanks and 1-2bp motifs
// still produce seeds for reads that straddle the repeat.
func BuildKmerIndex(g *graph.Graph, k int) *KmerIndex {
	idx := &KmerIndex{k: k, table: make(map[uint64][]kmerPos)}
	seen := make(map[uint64]map[kmerPos]bool)
	for n := 0; n < g.NodeCount(); n++ {
		seq := g.NodeSequence(n)
		for i := range seq {
			idx.extend(g, seen, make([]byte, 0, k), n, i, kmerPos{node: n, offset: i})
		}
	}
	return idx
}

// extend walks from (node, ofs) accumulating bases into prefix; once k
// bases are collected the k-mer is recorded at origin. Branching paths
// (swaps, optional skips, self-loops) each contribute their own k-mer.
func (idx *KmerIndex) extend(g *graph.Graph, seen map[uint64]map[kmerPos]bool, prefix []byte, node, ofs int, origin kmerPos) {
	seq := g.NodeSequence(node)
	for ofs < len(seq) && len(prefix) < idx.k {
		prefix = append(prefix, seq[ofs])
		ofs++
	}
	if len(prefix) == idx.k {
		idx.record(seen, prefix, origin)
		return
	}
	for _, s := range g.Successors(node) {
		branch := make([]byte, len(prefix), idx.k)
		copy(branch, prefix)
		idx.extend(g, seen, branch, s, 0, origin)
	}
}

func (idx *KmerIndex) record(seen map[uint64]map[kmerPos]bool, kmer []byte, origin kmerPos) {
	h := hashKmer(kmer)
	at := seen[h]
	if at == nil {
		at = make(map[kmerPos]bool)
		seen[h] = at
	}
	if at[origin] {
		return
	}
	at[origin] = true
	idx.table[h] = append(idx.table[h], origin)
}

func hashKmer(b []byte) uint64 {
	return farm.Hash64(b)
}

// CountHits returns the number of query k-mers with at least one exact
// hit in the index (used by the orientation predictor).
func (idx *KmerIndex) CountHits(query []byte) int {
	if len(query) < idx.k {
		return 0
	}
	hits := 0
	for i := 0; i+idx.k <= len(query); i++ {
		if _, ok := idx.table[hashKmer(query[i:i+idx.k])]; ok {
			hits++
		}
	}
	return hits
}

// Seeds returns every (query offset, node, node offset) exact match.
func (idx *KmerIndex) Seeds(query []byte) []Seed {
	if len(query) < idx.k {
		return nil
	}
	var out []Seed
	for i := 0; i+idx.k <= len(query); i++ {
		for _, p := range idx.table[hashKmer(query[i:i+idx.k])] {
			out = append(out, Seed{QueryOffset: i, Node: p.node, NodeOffset: p.offset, Len: idx.k})
		}
	}
	return out
}

// Seed is one exact k-mer match between a query and a graph node.
type Seed struct {
	QueryOffset int
	Node        int
	NodeOffset  int
	Len         int
}
