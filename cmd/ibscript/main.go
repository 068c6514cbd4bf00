package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/go-gotop/ibkit/config"
)

// command 一个脚本, args 为子命令之后的参数
type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"check-connection": {"connect, wait for the first valid id and print the session state", runCheckConnection},
	"next-id":          {"print the next valid order id", runNextID},
	"account-summary":  {"print the account summary of a group", runAccountSummary},
	"account-updates":  {"print account values and portfolio of one account", runAccountUpdates},
	"open-orders":      {"print open orders of all clients", runOpenOrders},
	"executions":       {"print executions and commission reports", runExecutions},
	"historical":       {"print historical bars of a contract", runHistorical},
	"global-cancel":    {"cancel all open orders", runGlobalCancel},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ibscript", flag.ContinueOnError)
	fs.SetOutput(stderr)
	conf := fs.String("conf", "", "config file path, eg: -conf configs/ibscript.yaml")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(fs, stderr)
		return 2
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(fs, stderr)
		return 2
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		a.log.Errorf("%s failed: %v", name, err)
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return 1
	}
	return 0
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: ibscript [-conf file] <command> [flags]")
	fs.PrintDefaults()
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-18s %s\n", n, commands[n].usage)
	}
}
