// Package cli wires the stcompress command surface: five positional
// arguments per the tool's wire contract, plus flags for the ELF ingestion
// path and filter overrides.
package cli

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/maxgio92/stcompress/callgraph"
	"github.com/maxgio92/stcompress/internal/binscan"
	"github.com/maxgio92/stcompress/internal/config"
	"github.com/maxgio92/stcompress/rcg"
	"github.com/maxgio92/stcompress/reconstruct"
	"github.com/maxgio92/stcompress/trace"
)

// ArgumentError marks a fatal CLI argument problem: a non-integer numeric
// argument or an invalid pruning-depth relationship. Wrong arity is
// rejected earlier, by cobra.ExactArgs.
type ArgumentError struct {
	msg string
}

func (e *ArgumentError) Error() string { return e.msg }

func argErrorf(format string, args ...any) *ArgumentError {
	return &ArgumentError{msg: fmt.Sprintf(format, args...)}
}

type options struct {
	fromELF      bool
	filterConfig string
	verbose      bool
}

// NewRootCommand builds the stcompress cobra command.
func NewRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "stcompress <call-graph-file> <traces-file> <max-depth> <pruning-depth-1> <pruning-depth-2>",
		Short: "Reconstruct compressed stack traces against a static call graph",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVar(&opts.fromELF, "from-elf", false,
		"treat <call-graph-file> as an ELF binary and derive the call graph from its .text section")
	cmd.Flags().StringVar(&opts.filterConfig, "filter-config", "",
		"YAML file overriding the default call-graph filter policy")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "raise log verbosity")

	return cmd
}

func run(args []string, opts options) error {
	configureLogging(opts.verbose)

	cgPath, tracesPath := args[0], args[1]

	maxDepth, err := strconv.Atoi(args[2])
	if err != nil {
		return argErrorf("max_depth must be an integer: %v", err)
	}
	pd1, err := strconv.Atoi(args[3])
	if err != nil {
		return argErrorf("pruning_depth_1 must be an integer: %v", err)
	}
	pd2, err := strconv.Atoi(args[4])
	if err != nil {
		return argErrorf("pruning_depth_2 must be an integer: %v", err)
	}
	if !(pd1 < pd2 && pd2 <= maxDepth) {
		return argErrorf("need pruning_depth_1 < pruning_depth_2 <= max_depth, got %d < %d <= %d", pd1, pd2, maxDepth)
	}

	filter := callgraph.DefaultFilter()
	if opts.filterConfig != "" {
		filter, err = config.LoadFilter(opts.filterConfig)
		if err != nil {
			return err
		}
	}

	cg, err := loadCallGraph(cgPath, opts.fromELF)
	if err != nil {
		return err
	}

	targetsToCallers := cg.Resolve(filter)
	revCG := rcg.New(targetsToCallers)

	tracesFile, err := os.Open(tracesPath)
	if err != nil {
		return fmt.Errorf("open traces file: %w", err)
	}
	defer tracesFile.Close()

	reader := trace.NewReader(cg, targetsToCallers, maxDepth, pd1, pd2)
	records, stats, err := reader.ReadAll(tracesFile)
	if err != nil {
		return fmt.Errorf("read traces: %w", err)
	}

	ev := log.Info()
	if stats.Dropped > 0 || stats.Clipped > 0 {
		ev = log.Warn()
	}
	ev.
		Int("traces", len(records)).
		Int("dropped", stats.Dropped).
		Int("clipped", stats.Clipped).
		Int("duplicate_hashes", stats.DuplicateHashes).
		Msg("loaded traces")

	for _, rec := range records {
		if err := reconstructOne(revCG, cg, maxDepth, pd1, pd2, rec); err != nil {
			return err
		}
	}

	return nil
}

func reconstructOne(revCG *rcg.Graph, cg *callgraph.Graph, maxDepth, pd1, pd2 int, rec trace.Record) error {
	logger := log.With().Str("entry", rec.EntryName).Uint64("hash", rec.Hash).Logger()

	entryPC, ok := cg.NameToPC[rec.EntryName]
	if !ok {
		logger.Warn().Msg("entry function not present in call graph; skipping")
		return nil
	}
	entryNode, ok := revCG.Funcs[entryPC]
	if !ok {
		logger.Warn().Msg("entry function has no reverse-call-graph node; skipping")
		return nil
	}

	ctx, err := reconstruct.New(maxDepth, pd1, pd2, rec.Hash, rec.Partial)
	if err != nil {
		return err
	}

	result, err := ctx.Run(entryNode)
	if err != nil {
		logger.Warn().Err(err).Msg("could not reconstruct trace")
		return nil
	}

	ev := logger.Info().Ints64("trace", toInt64s(result.Trace))
	if result.Collisions > 0 {
		ev = ev.Int("collisions", result.Collisions)
	}
	ev.Msg("reconstructed trace")
	return nil
}

func toInt64s(pcs []uint64) []int64 {
	out := make([]int64, len(pcs))
	for i, pc := range pcs {
		out[i] = int64(pc)
	}
	return out
}

func loadCallGraph(path string, fromELF bool) (*callgraph.Graph, error) {
	if !fromELF {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open call graph file: %w", err)
		}
		defer f.Close()
		return callgraph.Parse(f)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ELF binary: %w", err)
	}
	defer f.Close()

	dump, err := binscan.DumpFromELF(f)
	if err != nil {
		return nil, fmt.Errorf("derive call graph from ELF: %w", err)
	}

	return callgraph.Parse(bytes.NewReader(dump))
}

func configureLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
