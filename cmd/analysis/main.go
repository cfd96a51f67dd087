// Command analysis measures a filter's false positive rate empirically.
//
// It adds the integers [0, n), probes [n, 2n) which were never added, and
// compares the fraction reported present with the theoretical estimate for
// the filter's parameters.
//
//	analysis -items 10000000 -k 7
//	analysis -items 100000 -capacity 1048576 -mixer mask
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jcalabro/seedbloom"
)

var errRateExceeded = errors.New("measured false positive rate exceeds bound")

type params struct {
	items    uint64
	capacity uint64
	k        uint
	mixer    string
	strict   bool
	bitset   bool
	maxRatio float64
	logLevel string
}

type result struct {
	measured    float64
	theoretical float64
	falsePos    uint64
	elapsed     time.Duration
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logrus.WithError(err).Error("analysis failed")
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var p params
	fs := flag.NewFlagSet("analysis", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Uint64Var(&p.items, "items", 10_000_000, "number of items to add")
	fs.Uint64Var(&p.capacity, "capacity", seedbloom.DefaultCapacity, "filter capacity in bits")
	fs.UintVar(&p.k, "k", uint(len(seedbloom.DefaultSeeds())), fmt.Sprintf("number of hash functions (1-%d)", seedbloom.MaxK))
	fs.StringVar(&p.mixer, "mixer", "finalizer", "index mixer: finalizer or mask")
	fs.BoolVar(&p.strict, "strict", false, "lock each operation end to end")
	fs.BoolVar(&p.bitset, "bitset", false, "use bitset storage")
	fs.Float64Var(&p.maxRatio, "max-ratio", 1.5, "fail when measured/theoretical exceeds this; 0 disables")
	fs.StringVar(&p.logLevel, "log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level, err := logrus.ParseLevel(p.logLevel)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	r, err := measure(p, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "items:        %d\n", p.items)
	fmt.Fprintf(out, "capacity:     %d\n", p.capacity)
	fmt.Fprintf(out, "k:            %d\n", p.k)
	fmt.Fprintf(out, "mixer:        %s\n", p.mixer)
	fmt.Fprintf(out, "false pos:    %d\n", r.falsePos)
	fmt.Fprintf(out, "measured:     %.6f\n", r.measured)
	fmt.Fprintf(out, "theoretical:  %.6f\n", r.theoretical)
	fmt.Fprintf(out, "elapsed:      %s\n", r.elapsed.Round(time.Millisecond))

	if p.maxRatio > 0 && r.measured > p.maxRatio*r.theoretical {
		return fmt.Errorf("%w: %.6f > %.2f x %.6f", errRateExceeded, r.measured, p.maxRatio, r.theoretical)
	}
	return nil
}

func measure(p params, log logrus.FieldLogger) (result, error) {
	var mix seedbloom.Mixer
	switch p.mixer {
	case "finalizer":
		mix = seedbloom.MixFinalizer
	case "mask":
		mix = seedbloom.MixMask
	default:
		return result{}, fmt.Errorf("unknown mixer %q", p.mixer)
	}
	if p.items == 0 {
		return result{}, errors.New("items must be positive")
	}
	if p.k == 0 || p.k > uint(seedbloom.MaxK) {
		return result{}, fmt.Errorf("k must be 1-%d, got %d", seedbloom.MaxK, p.k)
	}

	opts := []seedbloom.Option{
		seedbloom.WithCapacity(p.capacity),
		seedbloom.WithK(uint32(p.k)),
		seedbloom.WithMixer(mix),
	}
	if p.strict {
		opts = append(opts, seedbloom.WithStrict())
	}
	if p.bitset {
		opts = append(opts, seedbloom.WithBitset())
	}
	f, err := seedbloom.New(opts...)
	if err != nil {
		return result{}, err
	}

	start := time.Now()
	for i := range p.items {
		f.Add(i)
	}
	log.WithFields(logrus.Fields{
		"items":   p.items,
		"elapsed": time.Since(start),
		"fill":    f.EstimatedFillRatio(),
	}).Debug("added items")

	var fp uint64
	for i := p.items; i < 2*p.items; i++ {
		if f.MightContain(i) {
			fp++
		}
	}

	return result{
		measured:    float64(fp) / float64(p.items),
		theoretical: seedbloom.EstimateFalsePositiveRate(p.capacity, uint32(p.k), p.items),
		falsePos:    fp,
		elapsed:     time.Since(start),
	}, nil
}
