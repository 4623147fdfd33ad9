package findings

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/strgraph/align"
	"github.com/grailbio/strgraph/blueprint"
	"github.com/grailbio/strgraph/locus"
)

// graphCigarTag carries the locus-graph path and per-node operations of
// the canonical alignment, since a linear CIGAR cannot express the
// graph traversal itself.
var graphCigarTag = sam.NewTag("XG")

// BamSink writes realigned reads as BAM records, one reference per
// locus. Writes are serialized with a mutex; analyzers on different
// worker goroutines share a single sink.
type BamSink struct {
	mu     sync.Mutex
	w      *bam.Writer
	closer io.Closer
	refs   map[string]*sam.Reference
}

// NewBamSink builds a sink whose header carries one reference per
// compiled locus, named by locus id and sized to the summed sequence
// lengths of the locus graph's nodes.
func NewBamSink(w io.WriteCloser, specs []*blueprint.LocusSpec) (*BamSink, error) {
	refs := make(map[string]*sam.Reference, len(specs))
	refList := make([]*sam.Reference, 0, len(specs))
	for _, spec := range specs {
		length := 0
		for id := 0; id < spec.Graph.NodeCount(); id++ {
			length += len(spec.Graph.NodeSequence(id))
		}
		ref, err := sam.NewReference(spec.ID, "", "", length, nil, nil)
		if err != nil {
			return nil, errors.E(err, "creating realigned-BAM reference for locus", spec.ID)
		}
		refs[spec.ID] = ref
		refList = append(refList, ref)
	}
	header, err := sam.NewHeader(nil, refList)
	if err != nil {
		return nil, errors.E(err, "creating realigned-BAM header")
	}
	bw, err := bam.NewWriter(w, header, 1)
	if err != nil {
		return nil, errors.E(err, "creating realigned-BAM writer")
	}
	return &BamSink{w: bw, closer: w, refs: refs}, nil
}

var _ locus.RealignedSink = (*BamSink)(nil)

// Write implements locus.RealignedSink.
func (s *BamSink) Write(locusID, fragmentID string, seq []byte, isFirstMate, isReadReversed, isMateReversed bool, a align.GraphAlignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.refs[locusID]
	if !ok {
		return errors.E("realigned-BAM sink has no reference for locus", locusID)
	}
	rec, err := sam.NewRecord(fragmentID, ref, nil, a.Nodes[0].StartOfs, -1, 0, 0,
		linearCigar(a), seq, nil, []sam.Aux{graphAux(a)})
	if err != nil {
		return errors.E(err, "building realigned record for", fragmentID)
	}
	rec.Flags = sam.Paired
	if isFirstMate {
		rec.Flags |= sam.Read1
	} else {
		rec.Flags |= sam.Read2
	}
	if isReadReversed {
		rec.Flags |= sam.Reverse
	}
	if isMateReversed {
		rec.Flags |= sam.MateReverse
	}
	if err := s.w.Write(rec); err != nil {
		return errors.E(err, "writing realigned record for", fragmentID)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *BamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Close(); err != nil {
		return err
	}
	return s.closer.Close()
}

func linearCigar(a align.GraphAlignment) sam.Cigar {
	var cigar sam.Cigar
	for _, op := range a.AllOps() {
		cigar = append(cigar, sam.NewCigarOp(cigarType(op.Kind), op.Len))
	}
	return cigar
}

func cigarType(k align.OpKind) sam.CigarOpType {
	switch k {
	case align.OpMatch:
		return sam.CigarEqual
	case align.OpMismatch:
		return sam.CigarMismatch
	case align.OpInsertion:
		return sam.CigarInsertion
	case align.OpDeletion:
		return sam.CigarDeletion
	default:
		return sam.CigarSoftClipped
	}
}

// graphAux renders the alignment in node-annotated form, e.g.
// "0[3M]1[1M]1[1M]2[4M]".
func graphAux(a align.GraphAlignment) sam.Aux {
	var sb strings.Builder
	for _, na := range a.Nodes {
		fmt.Fprintf(&sb, "%d[", na.Node)
		for _, op := range na.Ops {
			fmt.Fprintf(&sb, "%d%s", op.Len, op.Kind)
		}
		sb.WriteString("]")
	}
	aux, _ := sam.NewAux(graphCigarTag, sb.String())
	return aux
}
