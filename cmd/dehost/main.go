package main

/*
dehost removes host (human) reads from a sequencing sample. It aligns the reads against a
human index, keeps the unmapped ones, writes them as gzipped FASTQ in the output directory
and prints a JSON report of the read counts.
*/

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/askiada/go-dehost/pkg/aligner"
	"github.com/askiada/go-dehost/pkg/dehost"
)

var (
	fastq1      = flag.String("fastq1", "", "Path to the forward (or only) reads; required")
	fastq2      = flag.String("fastq2", "", "Path to the reverse reads of a paired-end sample")
	alignerName = flag.String("aligner", string(aligner.Bowtie2), "Alignment backend: bowtie2 or minimap2")
	index       = flag.String("index", "", "Custom index (bowtie2) or reference (minimap2) used instead of the default human one")
	outDir      = flag.String("out-dir", ".", "Directory receiving the cleaned reads")
	rename      = flag.Bool("rename", false, "Replace read names with incrementing integers")
	reorder     = flag.Bool("reorder", false, "Keep the input order of the reads")
	alignerArgs = flag.String("aligner-args", "", "Extra arguments passed to the aligner, split on spaces")
	threads     = flag.Int("threads", 0, "Threads used by the aligner and samtools; 0 = runtime.NumCPU()")
	force       = flag.Bool("force", false, "Overwrite existing outputs")
	native      = flag.Bool("native", false, "Run filtering and counting in process instead of a bash pipeline")
	measure     = flag.Bool("measure", false, "Log the time spent in each stage; requires -native")
	dotFile     = flag.String("dot", "", "Write the pipeline graph to this DOT file")
	dataDir     = flag.String("data-dir", "", "Cache directory of the default indexes (default $"+dehost.CacheDirEnv+" or the user cache dir)")
)

func dehostUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -fastq1 reads_1.fastq.gz [-fastq2 reads_2.fastq.gz] [OPTIONS]\n", os.Args[0])
	flag.PrintDefaults()
}

func config() (dehost.Config, error) {
	cfg, err := dehost.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}

	kind, err := aligner.ParseKind(*alignerName)
	if err != nil {
		return cfg, err
	}

	cfg.Aligner = kind
	cfg.Index = *index
	cfg.OutDir = *outDir
	cfg.Rename = *rename
	cfg.Reorder = *reorder
	cfg.AlignerArgs = strings.Fields(*alignerArgs)
	cfg.Threads = *threads
	cfg.Force = *force
	cfg.Native = *native
	cfg.Measure = *measure
	cfg.DOTFile = *dotFile
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	return cfg, nil
}

func main() {
	flag.Usage = dehostUsage
	shutdown := grail.Init()
	defer shutdown()

	if *fastq1 == "" || flag.NArg() > 0 {
		flag.Usage()
		log.Fatalf("-fastq1 is required and positional arguments are not accepted: '%s'", strings.Join(flag.Args(), " "))
	}

	cfg, err := config()
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := dehost.Clean(ctx, cfg, *fastq1, *fastq2)
	if err != nil {
		log.Fatalf("%v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("unable to write report: %v", err)
	}
	log.Debug.Printf("exiting")
}
