// Package cliargs parses the flag surface named in spec §6, in the teacher's
// style (internal/cli/command.go: a pflag.FlagSet, parsed once; every parse
// error, --help included, is returned wrapped in errs.ErrParse). The
// interactive shell/parser UX itself
// remains an external collaborator (spec §1); this package only shapes the
// flags into typed Args structs for MungeCore/BtrCore.
package cliargs

import (
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kestrelsec/munge/internal/errs"
)

// MungeArgs is the parsed Munge CLI surface (spec §6).
type MungeArgs struct {
	StartLength   int // -L<N>
	HasStartLen   bool
	Restore       bool    // -restore
	RequireAll    []uint8 // --require-all id1,id2,... (supports ranges a-b)
	NoRepeat      []uint8 // --no-repeat id1,id2,...
	Exclude       []uint8 // --exclude id1,id2,...
	NoCutlist     bool    // --no-cutlist
	RemoveInverse bool    // --remove-inverse (off by default per spec §9 Open Question (b))

	Common CommonArgs
}

// CommonArgs is the flag surface shared by every cmd/ entry point: which
// input file to read, which data-type tag to run under, and config
// overrides (spec §6's "-config <path>").
type CommonArgs struct {
	Input      string
	DataType   string
	ConfigPath string
	Quiet      bool
}

func addCommonFlags(fs *flag.FlagSet) *CommonArgs {
	c := &CommonArgs{}
	fs.StringVar(&c.Input, "input", "", "path to the input file to search over")
	fs.StringVar(&c.DataType, "data-type", "S", "input data-type tag (S, N, C, R, U)")
	fs.StringVar(&c.ConfigPath, "config", "", "explicit config file path, overriding the precedence chain")
	fs.BoolVar(&c.Quiet, "quiet", false, "suppress informational progress output")

	return c
}

// ParseMunge parses argv into MungeArgs.
func ParseMunge(argv []string) (MungeArgs, error) {
	fs := flag.NewFlagSet("munge", flag.ContinueOnError)
	fs.SetOutput(devNullWriter{})

	startLen := fs.IntP("start-length", 'L', 0, "sequence length to start at")
	restore := fs.Bool("restore", false, "resume from the checkpoint file")
	requireAll := fs.String("require-all", "", "comma/range list of ids every sequence must contain")
	noRepeat := fs.String("no-repeat", "", "comma/range list of ids limited to one occurrence")
	exclude := fs.String("exclude", "", "comma/range list of ids to drop from the pool")
	noCutlist := fs.Bool("no-cutlist", false, "disable cutlist pruning")
	removeInverse := fs.Bool("remove-inverse", false, "prune one id of each inverse pair")
	common := addCommonFlags(fs)

	if err := fs.Parse(argv); err != nil {
		return MungeArgs{}, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}

	req, err := parseIDList(*requireAll)
	if err != nil {
		return MungeArgs{}, fmt.Errorf("%w: --require-all: %w", errs.ErrParse, err)
	}

	nr, err := parseIDList(*noRepeat)
	if err != nil {
		return MungeArgs{}, fmt.Errorf("%w: --no-repeat: %w", errs.ErrParse, err)
	}

	ex, err := parseIDList(*exclude)
	if err != nil {
		return MungeArgs{}, fmt.Errorf("%w: --exclude: %w", errs.ErrParse, err)
	}

	return MungeArgs{
		StartLength:   *startLen,
		HasStartLen:   fs.Changed("start-length"),
		Restore:       *restore,
		RequireAll:    req,
		NoRepeat:      nr,
		Exclude:       ex,
		NoCutlist:     *noCutlist,
		RemoveInverse: *removeInverse,
		Common:        *common,
	}, nil
}

// BtrArgs is the parsed BTR CLI surface (spec §6).
type BtrArgs struct {
	MaxRounds     uint8 // --max-rounds N (default 9)
	StartingRound uint8 // --starting-round N (default = preferred GR for input type)
	HasStarting   bool
	Sequence      []uint8 // --sequence id1,id2,... the fixed sequence to optimize rounds for
	Length        int     // --length N, btrr's sweep length (ignored by btr)

	Common CommonArgs
}

// ParseBtr parses argv into BtrArgs.
func ParseBtr(argv []string) (BtrArgs, error) {
	fs := flag.NewFlagSet("btr", flag.ContinueOnError)
	fs.SetOutput(devNullWriter{})

	maxRounds := fs.Uint8("max-rounds", 9, "maximum per-transform rounds (TR) in each round config; the global-rounds sweep is bounded by the config's max_gr, not by this flag")
	startingRound := fs.Uint8("starting-round", 0, "global rounds value of the btr baseline evaluation; the global-rounds sweep itself starts at 1")
	sequence := fs.String("sequence", "", "comma/range list of ids forming the fixed sequence to optimize")
	length := fs.Int("length", 0, "sweep length (btrr only)")
	common := addCommonFlags(fs)

	if err := fs.Parse(argv); err != nil {
		return BtrArgs{}, fmt.Errorf("%w: %w", errs.ErrParse, err)
	}

	seq, err := parseIDList(*sequence)
	if err != nil {
		return BtrArgs{}, fmt.Errorf("%w: --sequence: %w", errs.ErrParse, err)
	}

	return BtrArgs{
		MaxRounds:     *maxRounds,
		StartingRound: *startingRound,
		HasStarting:   fs.Changed("starting-round"),
		Sequence:      seq,
		Length:        *length,
		Common:        *common,
	}, nil
}

type devNullWriter struct{}

func (devNullWriter) Write(p []byte) (int, error) { return len(p), nil }

// parseIDList parses a comma-separated list of ids and a-b ranges, per
// spec §6's "--require-all id1,id2,... (supports ranges a-b)".
func parseIDList(s string) ([]uint8, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ids []uint8

	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(tok, "-"); ok && lo != "" && hi != "" {
			loN, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", tok, err)
			}

			hiN, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", tok, err)
			}

			for n := loN; n <= hiN; n++ {
				ids = append(ids, uint8(n))
			}

			continue
		}

		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", tok, err)
		}

		ids = append(ids, uint8(n))
	}

	return ids, nil
}
