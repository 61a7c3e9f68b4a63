package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/noxpeteam/TXPacker/txpacker"
	"github.com/noxpeteam/TXPacker/txpacker/credits"
	"github.com/noxpeteam/TXPacker/txpacker/optimize"
	"github.com/noxpeteam/TXPacker/txpacker/pack"
)

func openPack(path string) (*pack.Archive, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	a, err := pack.NewArchive(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, f.Close, nil
}

// writeFile creates path and hands it to fn, removing it again if fn fails.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func runInfo(_ context.Context, _ *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	a, closeFn, err := openPack(fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := pack.Validate(a)
	if err != nil {
		return err
	}
	if info, err := pack.Parse(a); err == nil {
		fmt.Printf("name:        %s\n", info.Name)
		fmt.Printf("description: %s\n", info.Description)
		fmt.Printf("uuid:        %s\n", info.UUID)
		if v, err := info.SemVer(); err == nil {
			fmt.Printf("version:     %s\n", v)
		}
	}
	fmt.Printf("manifest:    %s\n", res.ManifestPath)
	fmt.Printf("valid:       %t\n", res.Valid)
	for _, issue := range res.Issues {
		fmt.Printf("  - %s\n", issue)
	}
	return nil
}

func runFix(_ context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("fix", flag.ContinueOnError)
	if err := parse(fs, args, 2); err != nil {
		return err
	}
	a, closeFn, err := openPack(fs.Arg(0))
	if err != nil {
		return err
	}
	defer closeFn()

	var buf bytes.Buffer
	fixed, err := pack.Fix(a, &buf)
	if err != nil {
		return err
	}
	if !fixed {
		logger.Info("pack is already valid", "pack", fs.Arg(0))
		return nil
	}
	if err := os.WriteFile(fs.Arg(1), buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("pack fixed", "out", fs.Arg(1))
	return nil
}

// levelFlag accepts a level number or name.
type levelFlag struct{ level optimize.Level }

func (f *levelFlag) String() string { return f.level.String() }

func (f *levelFlag) Set(s string) error {
	l, err := optimize.ParseLevel(s)
	if err != nil {
		return err
	}
	f.level = l
	return nil
}

func packerFlags(fs *flag.FlagSet, cfg *txpacker.Config) *levelFlag {
	lf := &levelFlag{level: cfg.Level}
	fs.Var(lf, "level", "optimization level: 0-3 or none, basic, advanced, max")
	fs.IntVar(&cfg.MemoryMB, "mem", 0, "device memory in MB; lowers the level on small devices")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers")
	return lf
}

func runOptimize(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg := txpacker.DefaultConfig()
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	lf := packerFlags(fs, &cfg)
	if err := parse(fs, args, 2); err != nil {
		return err
	}
	cfg.Level = lf.level

	p, err := txpacker.NewPacker(cfg, txpacker.WithLogger(logger))
	if err != nil {
		return err
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}

	var res txpacker.Result
	err = writeFile(fs.Arg(1), func(w io.Writer) error {
		res, err = p.Process(ctx, f, st.Size(), w)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d textures optimized at level %s, %d skipped, %d bytes written\n",
		res.Info.Name, res.Report.Processed, res.Level, res.Report.Skipped, res.Written)
	return nil
}

func runCredits(_ context.Context, _ *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("credits", flag.ContinueOnError)
	if err := parse(fs, args, 0); err != nil {
		return err
	}
	if !credits.Verify() {
		return fmt.Errorf("credits missing")
	}
	fmt.Println(strings.Join([]string{"TXPacker", credits.Team(), credits.Developers()}, "\n"))
	return nil
}
