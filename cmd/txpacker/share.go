package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/noxpeteam/TXPacker/txpacker/bundle"
	"github.com/noxpeteam/TXPacker/txpacker/identity"
	"github.com/noxpeteam/TXPacker/txpacker/seal"
	"github.com/noxpeteam/TXPacker/txpacker/share"
)

const defaultAddr = ":7443"

func loadBundle(path string) (*bundle.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	bd, err := bundle.ReadBundle(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bd, nil
}

func runServe(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", defaultAddr, "listen address")
	if err := parse(fs, args, -1); err != nil {
		return err
	}

	catalog := share.NewCatalog()
	for _, path := range fs.Args() {
		bd, err := loadBundle(path)
		if err != nil {
			return err
		}
		if err := catalog.Announce(bd); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("bundle loaded", "name", bd.Header.Name, "chunks", bd.Header.ChunkCount)
	}
	return share.NewServer(catalog, share.WithLogger(logger)).ListenAndServe(ctx, *addr)
}

func runList(ctx context.Context, _ *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	if err := parse(fs, args, 1); err != nil {
		return err
	}
	entries, err := share.List(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-32s %10d bytes  sealed=%t  publisher=%s\n", e.Name, e.Size, e.Sealed, e.Publisher)
	}
	return nil
}

func runFetch(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	passphrase := fs.String("passphrase", "", "passphrase for sealed bundles")
	publisher := fs.String("publisher", "", "only accept bundles signed by this publisher id")
	if err := parse(fs, args, 3); err != nil {
		return err
	}
	addr, name, out := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	var opts []share.FetchOption
	if *publisher != "" {
		id, err := identity.ParsePublisherID(*publisher)
		if err != nil {
			return err
		}
		opts = append(opts, share.WithPublisher(id))
	}
	if *passphrase != "" {
		// The key is bound to the pack UUID, which the catalog reports.
		entries, err := share.List(ctx, addr)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Name != name {
				continue
			}
			key, err := seal.KeyFromPassphrase(*passphrase, e.PackUUID)
			if err != nil {
				return err
			}
			opts = append(opts, share.WithKey(key))
		}
	}

	res, err := share.Fetch(ctx, addr, name, opts...)
	if err != nil {
		return err
	}
	logger.Info("bundle fetched", "name", res.Header.Name, "bytes", len(res.Data), "signed", res.Header.Signed())
	return os.WriteFile(out, res.Data, 0o644)
}
