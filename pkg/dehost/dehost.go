// Package dehost removes host reads from sequencing samples. Clean provisions the aligner
// data, compiles the pipeline of a sample, runs it and reports how many reads were removed.
package dehost

import (
	"context"
	"os"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/askiada/go-dehost/pkg/aligner"
	"github.com/askiada/go-dehost/pkg/compiler"
	"github.com/askiada/go-dehost/pkg/executor"
	"github.com/askiada/go-dehost/pkg/provision"
)

// Clean removes the host reads of a sample. reads2 is empty for single-end samples.
func Clean(ctx context.Context, cfg Config, reads1, reads2 string) (*Report, error) {
	desc, err := descriptor(cfg)
	if err != nil {
		return nil, err
	}

	var provisionOpts []provision.Option
	if cfg.Fetcher != nil {
		provisionOpts = append(provisionOpts, provision.WithFetcher(cfg.Fetcher))
	}
	err = provision.New(desc, provisionOpts...).Check(ctx, cfg.Index != "")
	if err != nil {
		return nil, err
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	compiled, err := newCompiler(cfg).Compile(desc, compiler.Request{
		Reads1:      reads1,
		Reads2:      reads2,
		OutDir:      cfg.OutDir,
		Index:       cfg.Index,
		Rename:      cfg.Rename,
		Reorder:     cfg.Reorder,
		AlignerArgs: cfg.AlignerArgs,
		Threads:     threads,
		Force:       cfg.Force,
	})
	if err != nil {
		return nil, err
	}

	ex, err := newExecutor(cfg, compiled)
	if err != nil {
		return nil, err
	}

	log.Printf("Cleaning %s with %s", reads1, desc.Name)

	err = ex.Execute(ctx, compiled)
	if err != nil {
		removeOutputs(compiled.Outputs)

		return nil, errors.Wrapf(err, "unable to clean %s", reads1)
	}

	counts, err := executor.ReadCounts(compiled.Outputs)
	if err != nil {
		return nil, err
	}

	return newReport(compiled, reads1, reads2, counts), nil
}

func descriptor(cfg Config) (*aligner.Descriptor, error) {
	opts := []aligner.Option{aligner.WithDataDir(cfg.DataDir)}
	if cfg.CDNBaseURL != "" {
		opts = append(opts, aligner.WithCDNBaseURL(cfg.CDNBaseURL))
	}
	if cfg.BinPath != "" {
		opts = append(opts, aligner.WithBinPath(cfg.BinPath))
	}

	return aligner.New(cfg.Aligner, opts...)
}

func newCompiler(cfg Config) *compiler.Compiler {
	var opts []compiler.Option
	if cfg.Samtools != "" {
		opts = append(opts, compiler.WithSamtools(cfg.Samtools))
	}
	if cfg.Awk != "" {
		opts = append(opts, compiler.WithAwk(cfg.Awk))
	}

	return compiler.New(opts...)
}

// newExecutor returns the executor of the run. The shell executor cannot observe the run, so
// the DOT file gets the compiled stage graph instead.
func newExecutor(cfg Config, compiled *compiler.Compiled) (executor.Executor, error) {
	if cfg.Native {
		return executor.Native{Measure: cfg.Measure, DOTFile: cfg.DOTFile}, nil
	}

	if cfg.DOTFile != "" {
		err := writeDOT(compiled, cfg.DOTFile)
		if err != nil {
			return nil, err
		}
	}

	return executor.Shell{}, nil
}

func writeDOT(compiled *compiler.Compiled, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer file.Close()

	err = compiled.WriteDOT(file)
	if err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return errors.Wrapf(file.Close(), "unable to close %s", path)
}

// removeOutputs deletes what a failed run may have written.
func removeOutputs(outputs compiler.Outputs) {
	for _, path := range append(outputs.CleanFiles(), outputs.ReadsIn, outputs.ReadsOut) {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			log.Error.Printf("unable to remove %s: %v", path, err)
		}
	}
}
