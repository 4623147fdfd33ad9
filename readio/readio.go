// Package readio adapts the BAM/PAM pair iterator into the read-pair
// records the locus analyzer consumes, and routes each pair to the
// locus (and provenance: target vs. off-target region) its primary
// alignment falls in.
package readio

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/strgraph/biosimd"
	"github.com/grailbio/strgraph/blueprint"
	gbam "github.com/grailbio/strgraph/encoding/bam"
	"github.com/grailbio/strgraph/encoding/bamprovider"
	"github.com/grailbio/strgraph/interval"
	"github.com/grailbio/strgraph/locus"
)

// seqASCIITable maps 4-bit base codes to IUPAC ASCII.
var seqASCIITable = [16]byte{
	'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

type locusRegions struct {
	id        string
	target    interval.BEDUnion
	offTarget interval.BEDUnion
	hasOff    bool
}

// Router maps a read pair's alignment coordinates to the locus whose
// target or off-target regions contain them.
type Router struct {
	loci []locusRegions
}

// NewRouter builds a router over the compiled loci. A locus without
// explicit target regions is targeted by the reference span of its
// graph's flank nodes.
func NewRouter(specs []*blueprint.LocusSpec) (*Router, error) {
	r := &Router{}
	for _, spec := range specs {
		target := spec.TargetRegions
		if len(target) == 0 {
			target = defaultTargetRegions(spec)
		}
		tu, err := bedUnionOf(target)
		if err != nil {
			return nil, errors.E(err, "target regions for locus", spec.ID)
		}
		lr := locusRegions{id: spec.ID, target: tu}
		if len(spec.OffTargetRegions) > 0 {
			ou, err := bedUnionOf(spec.OffTargetRegions)
			if err != nil {
				return nil, errors.E(err, "offtarget regions for locus", spec.ID)
			}
			lr.offTarget = ou
			lr.hasOff = true
		}
		r.loci = append(r.loci, lr)
	}
	return r, nil
}

func defaultTargetRegions(spec *blueprint.LocusSpec) []blueprint.RefRegion {
	g := spec.Graph
	left := g.Node(g.LeftFlank()).RefInterval()
	right := g.Node(g.RightFlank()).RefInterval()
	if left == nil || right == nil {
		return nil
	}
	return []blueprint.RefRegion{{Contig: left.Contig, Start: left.Start, End: right.End}}
}

func bedUnionOf(regions []blueprint.RefRegion) (interval.BEDUnion, error) {
	entries := make([]interval.Entry, 0, len(regions))
	for _, r := range regions {
		entries = append(entries, interval.Entry{
			ChrName: r.Contig,
			Start0:  interval.PosType(r.Start),
			End:     interval.PosType(r.End),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ChrName != entries[j].ChrName {
			return entries[i].ChrName < entries[j].ChrName
		}
		return entries[i].Start0 < entries[j].Start0
	})
	return interval.NewBEDUnionFromEntries(entries, interval.NewBEDOpts{})
}

// Route returns the locus id and provenance for a mapped record, or
// ok=false if the record falls in no locus' regions. Off-target regions
// are consulted only after target regions across all loci miss.
func (r *Router) Route(rec *sam.Record) (locusID string, prov locus.Provenance, ok bool) {
	if rec == nil || rec.Ref == nil {
		return "", 0, false
	}
	contig := rec.Ref.Name()
	pos := interval.PosType(rec.Pos)
	for i := range r.loci {
		if r.loci[i].target.ContainsByName(contig, pos) {
			return r.loci[i].id, locus.ProvenanceTarget, true
		}
	}
	for i := range r.loci {
		if r.loci[i].hasOff && r.loci[i].offTarget.ContainsByName(contig, pos) {
			return r.loci[i].id, locus.ProvenanceOffTarget, true
		}
	}
	return "", 0, false
}

// ToPair converts a provider pair into the analyzer's pair record,
// unpacking sequences and orientation flags. Both mates carry the same
// provenance tag.
func ToPair(p bamprovider.Pair, prov locus.Provenance) locus.Pair {
	return locus.Pair{
		Read: toRead(p.R1, prov),
		Mate: toRead(p.R2, prov),
	}
}

func toRead(rec *sam.Record, prov locus.Provenance) locus.Read {
	mateNum := 1
	if rec.Flags&sam.Read2 != 0 {
		mateNum = 2
	}
	return locus.Read{
		FragmentID: rec.Name,
		MateNum:    mateNum,
		Sequence:   unpackSeq(rec.Seq),
		IsReverse:  rec.Flags&sam.Reverse != 0,
		Provenance: prov,
	}
}

func unpackSeq(seq sam.Seq) []byte {
	out := make([]byte, seq.Length)
	biosimd.UnpackAndReplaceSeq(out, gbam.UnsafeDoubletsToBytes(seq.Seq), &seqASCIITable)
	return out
}

// Scan drives one pair iterator, routing each primary pair through the
// router and invoking emit for every pair that lands in a locus. Pairs
// with iterator errors abort the scan, except missing-mate errors,
// which are skipped.
func Scan(iter *bamprovider.PairIterator, router *Router, emit func(locusID string, p locus.Pair)) error {
	for iter.Scan() {
		pair := iter.Record()
		if pair.Err != nil {
			// Orphaned mates are routine near shard boundaries; skip.
			if _, ok := pair.Err.(bamprovider.MissingMateError); ok {
				continue
			}
			return pair.Err
		}
		id, prov, ok := routePair(router, pair)
		if !ok {
			continue
		}
		emit(id, ToPair(pair, prov))
	}
	return nil
}

// routePair routes by R1's alignment first, falling back to R2 (R1 may
// be the unmapped mate of a pair straddling a region edge).
func routePair(router *Router, pair bamprovider.Pair) (string, locus.Provenance, bool) {
	if id, prov, ok := router.Route(pair.R1); ok {
		return id, prov, true
	}
	return router.Route(pair.R2)
}
