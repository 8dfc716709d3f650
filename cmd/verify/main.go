package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/microsoft/hat/bind"
	"github.com/microsoft/hat/loader"
	"github.com/microsoft/hat/verify"
)

func main() {
	var (
		hatFile = flag.String("hat", "", "Path to the HAT file to verify")
		seed    = flag.Uint64("seed", 0, "Seed for random input data (0: nondeterministic)")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if *hatFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: verify -hat <file.hat> [-seed n]")
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
		verify.SetLogger(logger.Named("verify"))
	}

	if err := run(*hatFile, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(hatFile string, seed uint64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pkg, err := loader.LoadPackage(hatFile)
	if err != nil {
		return err
	}
	defer pkg.Close()

	fmt.Printf("Package: %s\n", pkg.HAT.Name)
	fmt.Printf("Functions: %d\n", len(pkg.HAT.Functions))

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewPCG(seed, seed))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	reports := verify.Package(ctx, pkg, rng)

	failed := 0
	for _, rep := range reports {
		fmt.Printf("\n%s:\n", rep.Function)
		if rep.Err != nil {
			failed++
			fmt.Printf("  FAILED: %v\n", rep.Err)
			continue
		}
		for i, before := range rep.Before {
			after := rep.After[i]
			fmt.Printf("  %s (%s, %d elements)\n", before.Name, before.Usage, after.Count)
			fmt.Printf("    before: %s\n", before.Preview)
			fmt.Printf("    after:  %s\n", after.Preview)
		}
	}

	fmt.Printf("\n%d of %d functions verified\n", len(reports)-failed, len(reports))
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}
