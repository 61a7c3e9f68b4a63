// Command txpacker inspects, repairs, optimizes, bundles and shares
// Minecraft Bedrock texture packs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, logger *slog.Logger, args []string) error
}

var commands = []command{
	{"info", "info <pack>", "show manifest details and validation issues", runInfo},
	{"fix", "fix <in> <out>", "repair a broken manifest", runFix},
	{"optimize", "optimize [-level n] [-mem MB] [-workers n] <in> <out>", "optimize every texture", runOptimize},
	{"bundle", "bundle [flags] <pack> <out>", "optimize a pack and export it as a verified bundle", runBundle},
	{"unbundle", "unbundle [-passphrase p] [-parity file] <bundle> <out>", "verify a bundle and extract the pack", runUnbundle},
	{"keygen", "keygen <file>", "create a publisher signing key", runKeygen},
	{"serve", "serve [-addr host:port] <bundle...>", "share bundles over QUIC", runServe},
	{"list", "list <addr>", "list the bundles a server offers", runList},
	{"fetch", "fetch [-passphrase p] [-publisher id] <addr> <name> <out>", "download and verify a bundle", runFetch},
	{"credits", "credits", "show credits", runCredits},
}

var errUsage = errors.New("usage")

func usage() {
	fmt.Fprintln(os.Stderr, "usage: txpacker [-v] <command> [args]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.summary)
	}
}

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := flag.Arg(0)
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(ctx, logger, flag.Args()[1:])
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: txpacker %s\n", c.usage)
			os.Exit(2)
		}
		if err != nil {
			logger.Error(c.name+" failed", "err", err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "txpacker: unknown command %q\n", name)
	usage()
	os.Exit(2)
}

// parse parses a subcommand's flags and checks its positional arguments.
func parse(fs *flag.FlagSet, args []string, nargs int) error {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if nargs >= 0 && fs.NArg() != nargs {
		return errUsage
	}
	if nargs < 0 && fs.NArg() < -nargs {
		return errUsage
	}
	return nil
}
