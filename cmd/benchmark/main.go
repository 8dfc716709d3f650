package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/microsoft/hat/bench"
	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/loader"
)

func main() {
	var (
		hatFile    = flag.String("hat", "", "Path to the HAT file to benchmark")
		funcName   = flag.String("function", "", "Benchmark a single function (default: all)")
		configFile = flag.String("config", "", "YAML file with benchmark settings")

		storeInHAT  = flag.Bool("store_in_hat", false, "Write mean durations back into the HAT file")
		resultsFile = flag.String("results_file", "", "Write a CSV report to this path")

		batchSize  = flag.Int64("batch_size", 10, "Iterations timed as one sample")
		minTimeSec = flag.Float64("min_time_in_sec", 10, "Least wall time the timed loop must cover")
		minIters   = flag.Int64("min_timing_iterations", 100, "Fewest timed iterations")
		minSetMB   = flag.Float64("input_sets_minimum_size_MB", 50, "Input working set size, for cache eviction")

		verbose     = flag.Bool("verbose", false, "Enable debug logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *hatFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: benchmark -hat <file.hat> [-function name] [-store_in_hat] [-results_file out.csv]")
		fmt.Fprintln(os.Stderr, "       benchmark -hat <file.hat> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		bind.SetLogger(logger.Named("bind"))
		loader.SetLogger(logger.Named("loader"))
		bench.SetLogger(logger.Named("bench"))
	}

	opts := bench.Options{
		MinIterations:      *minIters,
		MinTime:            time.Duration(*minTimeSec * float64(time.Second)),
		MinWorkingSetBytes: int64(*minSetMB * float64(1<<20)),
		BatchSize:          *batchSize,
	}
	if *configFile != "" {
		cfg, err := loadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		opts = cfg.apply(opts, flagsSet())
	}

	if *interactive {
		if err := runInteractive(*hatFile, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*hatFile, *funcName, opts, *storeInHAT, *resultsFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagsSet reports which flags appeared on the command line, so explicit
// flags win over config file values.
func flagsSet() map[string]bool {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func run(hatFile, funcName string, opts bench.Options, storeInHAT bool, resultsFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pkg, err := loader.LoadPackage(hatFile)
	if err != nil {
		return err
	}
	defer pkg.Close()

	fmt.Printf("Package: %s\n", pkg.HAT.Name)
	fmt.Printf("Functions: %d\n\n", len(pkg.HAT.Functions))

	var results []bench.FunctionResult
	if funcName != "" {
		results = append(results, benchmarkOne(ctx, pkg, funcName, opts))
	} else {
		for _, name := range pkg.HAT.FunctionNames() {
			results = append(results, benchmarkOne(ctx, pkg, name, opts))
			if ctx.Err() != nil {
				break
			}
		}
	}

	fmt.Println()
	fmt.Println(renderResults(results))

	if resultsFile != "" {
		f, err := os.Create(resultsFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := bench.WriteCSV(f, results); err != nil {
			return err
		}
		fmt.Printf("\nResults written to %s\n", resultsFile)
	}

	if storeInHAT {
		if err := bench.StoreResults(pkg, results); err != nil {
			return err
		}
		fmt.Printf("Mean durations stored in %s\n", hatFile)
	}
	return nil
}

// benchmarkOne times a single function with a progress bar tracking the
// iteration floor.
func benchmarkOne(ctx context.Context, pkg *loader.Package, name string, opts bench.Options) bench.FunctionResult {
	fr := bench.FunctionResult{Function: name}

	fn, sym, err := pkg.Function(name)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Function = fn.Name

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	plan, err := bind.Resolve(fn, bind.SynthesizeDims(fn, rng))
	if err != nil {
		fr.Err = err
		return fr
	}

	bar := progressbar.NewOptions64(opts.MinIterations,
		progressbar.OptionSetDescription(fn.Name),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	var done int64
	opts.Progress = func(n int64) {
		bar.Add64(n - done)
		done = n
	}

	fr.Result, fr.Err = bench.Run(ctx, sym, plan, opts)
	bar.Finish()
	return fr
}
