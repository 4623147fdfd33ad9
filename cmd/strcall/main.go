package main

/*
strcall genotypes short tandem repeats and small indels at the loci of
a JSON catalog, given aligned short reads (BAM/PAM) and an indexed
reference FASTA. It emits one findings record per locus as JSON lines
and, optionally, a realigned BAM of the reads used as evidence.
*/

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/strgraph/blueprint"
	"github.com/grailbio/strgraph/catalog"
	"github.com/grailbio/strgraph/encoding/bamprovider"
	"github.com/grailbio/strgraph/encoding/fasta"
	"github.com/grailbio/strgraph/findings"
	"github.com/grailbio/strgraph/locus"
	"github.com/grailbio/strgraph/readio"
)

var (
	catalogPath  = flag.String("catalog", "", "Locus catalog JSON path (required)")
	sampleID     = flag.String("sample-id", "sample", "Sample id recorded in output")
	sexFlag      = flag.String("sex", "female", "Sample sex; 'male' or 'female'")
	outPath      = flag.String("out", "strcall.findings.json", "Findings output path (JSON lines, one locus per line)")
	realignedBam = flag.String("realigned-bam", "", "Optional realigned BAM output path")
	parallelism  = flag.Int("parallelism", 0, "Maximum number of simultaneous locus analyses; 0 = runtime.NumCPU()")
)

func usage() {
	fmt.Printf("Usage: %s [OPTIONS] {b,p}ampath fapath\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Fatalf("Expected positional arguments {b,p}ampath and fapath; got '%s'", strings.Join(flag.Args(), " "))
	}
	bamPath, faPath := flag.Arg(0), flag.Arg(1)
	if *catalogPath == "" {
		log.Fatalf("-catalog is required")
	}
	sex, err := catalog.ParseSex(*sexFlag)
	if err != nil {
		log.Fatalf("%v", err)
	}
	sample := catalog.Sample{ID: *sampleID, Sex: sex}
	female := sex == catalog.Female
	nWorkers := *parallelism
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}

	ctx := vcontext.Background()

	ref := openFasta(faPath)
	specs := compileCatalog(ref)
	log.Printf("strcall: %d loci compiled for sample %s", len(specs), sample.ID)

	router, err := readio.NewRouter(specs)
	if err != nil {
		log.Fatalf("building read router: %v", err)
	}

	analyzers := make(map[string]*locus.Analyzer, len(specs))
	for _, spec := range specs {
		analyzers[spec.ID] = locus.NewAnalyzer(spec)
	}

	var sink *findings.BamSink
	if *realignedBam != "" {
		out, err := os.Create(*realignedBam)
		if err != nil {
			log.Fatalf("creating %s: %v", *realignedBam, err)
		}
		if sink, err = findings.NewBamSink(out, specs); err != nil {
			log.Fatalf("creating realigned-BAM sink: %v", err)
		}
		for _, an := range analyzers {
			an.SetRealignedSink(sink)
		}
	}

	pairsByLocus := collectPairs(bamPath, router, nWorkers)

	outFile, err := file.Create(ctx, *outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", *outPath, err)
	}
	writer := findings.NewWriter(outFile.Writer(ctx))

	err = traverse.Each(nWorkers, func(jobIdx int) error {
		startIdx := (jobIdx * len(specs)) / nWorkers
		endIdx := ((jobIdx + 1) * len(specs)) / nWorkers
		for _, spec := range specs[startIdx:endIdx] {
			an := analyzers[spec.ID]
			for _, p := range pairsByLocus[spec.ID] {
				an.ProcessPair(p)
			}
			if werr := writer.Write(an.Finalize(female)); werr != nil {
				return werr
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("analyzing loci: %v", err)
	}

	if err := outFile.Close(ctx); err != nil {
		log.Fatalf("closing %s: %v", *outPath, err)
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Fatalf("closing realigned BAM: %v", err)
		}
	}
}

func openFasta(faPath string) fasta.Fasta {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, faPath)
	if err != nil {
		log.Fatalf("opening %s: %v", faPath, err)
	}
	defer func() {
		if err := in.Close(ctx); err != nil {
			log.Fatalf("closing %s: %v", faPath, err)
		}
	}()
	f, err := fasta.New(in.Reader(ctx))
	if err != nil {
		log.Fatalf("parsing %s: %v", faPath, err)
	}
	return f
}

func compileCatalog(ref fasta.Fasta) []*blueprint.LocusSpec {
	vctx := vcontext.Background()
	in, err := file.Open(vctx, *catalogPath)
	if err != nil {
		log.Fatalf("opening %s: %v", *catalogPath, err)
	}
	entries, err := catalog.Load(in.Reader(vctx))
	if cerr := in.Close(vctx); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("loading catalog %s: %v", *catalogPath, err)
	}
	specs, err := catalog.CompileAll(entries, ref, func(locusID string, cerr error) {
		log.Error.Printf("skipping invalid locus %s: %v", locusID, cerr)
	})
	if err != nil {
		log.Fatalf("compiling catalog: %v", err)
	}
	return specs
}

// collectPairs scans the provider's pair iterators in parallel and
// buckets every routed pair by locus. Loci are analyzed afterwards so
// each analyzer remains single-threaded (one worker owns one locus).
func collectPairs(bamPath string, router *readio.Router, nWorkers int) map[string][]locus.Pair {
	provider := bamprovider.NewProvider(bamPath)
	iters, err := bamprovider.NewPairIterators(provider, false)
	if err != nil {
		log.Fatalf("opening %s: %v", bamPath, err)
	}

	pairsByLocus := map[string][]locus.Pair{}
	var mu sync.Mutex
	err = traverse.Each(len(iters), func(i int) error {
		return readio.Scan(iters[i], router, func(locusID string, p locus.Pair) {
			mu.Lock()
			pairsByLocus[locusID] = append(pairsByLocus[locusID], p)
			mu.Unlock()
		})
	})
	if ferr := bamprovider.FinishPairIterators(iters); err == nil {
		err = ferr
	}
	if cerr := provider.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("reading %s: %v", bamPath, err)
	}
	return pairsByLocus
}
