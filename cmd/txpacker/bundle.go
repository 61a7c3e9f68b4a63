package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/noxpeteam/TXPacker/txpacker"
	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/bundle/erasure"
	"github.com/noxpeteam/TXPacker/txpacker/identity"
	"github.com/noxpeteam/TXPacker/txpacker/seal"
)

// parityFlag parses "data+parity", e.g. "10+4".
type parityFlag struct{ data, parity int }

func (f *parityFlag) String() string {
	if f.parity == 0 {
		return ""
	}
	return fmt.Sprintf("%d+%d", f.data, f.parity)
}

func (f *parityFlag) Set(s string) error {
	d, p, ok := strings.Cut(s, "+")
	if !ok {
		return fmt.Errorf("want data+parity, got %q", s)
	}
	var err error
	if f.data, err = strconv.Atoi(d); err != nil {
		return err
	}
	if f.parity, err = strconv.Atoi(p); err != nil {
		return err
	}
	return nil
}

func runBundle(ctx context.Context, logger *slog.Logger, args []string) error {
	cfg := txpacker.DefaultConfig()
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	lf := packerFlags(fs, &cfg)
	fs.IntVar(&cfg.Bundle.ChunkSize, "chunk", cfg.Bundle.ChunkSize, "chunk size in bytes")
	fs.StringVar(&cfg.Passphrase, "passphrase", "", "seal the bundle with this passphrase")
	keyFile := fs.String("key", "", "sign with the publisher key in this file")
	var parity parityFlag
	fs.Var(&parity, "parity", "write Reed-Solomon parity, e.g. 10+4")
	if err := parse(fs, args, 2); err != nil {
		return err
	}
	cfg.Level = lf.level
	cfg.Bundle.ParityData, cfg.Bundle.ParityShards = parity.data, parity.parity

	if *keyFile != "" {
		kp, err := identity.LoadKeyFile(*keyFile)
		if err != nil {
			return err
		}
		cfg.Bundle.Signer = &kp
	}

	p, err := txpacker.NewPacker(cfg, txpacker.WithLogger(logger))
	if err != nil {
		return err
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	res, bd, err := p.BundlePack(ctx, data)
	if err != nil {
		return err
	}
	out := fs.Arg(1)
	if err := writeFile(out, func(w io.Writer) error {
		_, err := bd.WriteTo(w)
		return err
	}); err != nil {
		return err
	}
	if bd.Parity != nil {
		if err := writeFile(out+".parity", bd.WriteParity); err != nil {
			return err
		}
	}
	fmt.Printf("%s: %d textures at level %s, %d chunks, root %x\n",
		bd.Header.Name, res.Report.Processed, res.Level, bd.Header.ChunkCount, bd.Header.Root)
	return nil
}

func runUnbundle(_ context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("unbundle", flag.ContinueOnError)
	passphrase := fs.String("passphrase", "", "passphrase for sealed bundles")
	parityFile := fs.String("parity", "", "parity file used to repair damaged chunks")
	if err := parse(fs, args, 2); err != nil {
		return err
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	bd, err := bundle.ReadBundle(f)
	if err != nil {
		return err
	}

	if *parityFile != "" {
		pf, err := os.Open(*parityFile)
		if err != nil {
			return err
		}
		defer pf.Close()
		if bd.Parity, err = erasure.ReadParity(pf); err != nil {
			return err
		}
	}

	var key []byte
	if bd.Header.Sealed && *passphrase != "" {
		if key, err = seal.KeyFromPassphrase(*passphrase, bd.Header.PackUUID); err != nil {
			return err
		}
	}
	data, err := bd.Open(key)
	if err != nil {
		return err
	}
	if bd.Header.Signed() {
		logger.Info("bundle signature verified", "publisher", bd.Header.Publisher)
	}
	return os.WriteFile(fs.Arg(1), data, 0o644)
}

func runKeygen(_ context.Context, _ *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	kp, err := identity.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := identity.SaveKeyFile(fs.Arg(0), kp); err != nil {
		return err
	}
	fmt.Println(kp.PublisherID())
	return nil
}
