package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"masterfy/internal/service"

	"github.com/google/subcommands"
)

type refreshCmd struct{}

func (*refreshCmd) Name() string             { return "refresh" }
func (*refreshCmd) Synopsis() string         { return "fetch the latest market prices of every asset" }
func (*refreshCmd) Usage() string            { return "masterfy refresh\n" }
func (*refreshCmd) SetFlags(f *flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	r := service.NewPriceRefresher(a.repo, service.NewYahooQuotes(a.http, a.log), a.log)
	rep, err := r.RefreshAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error refreshing prices: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, u := range rep.Updated {
		fmt.Printf("%-12s %s\n", u.Ticker, brl(u.Price))
	}
	for _, f := range rep.Failed {
		fmt.Printf("%-12s unavailable\n", f)
	}
	return subcommands.ExitSuccess
}

type backupCmd struct {
	dir string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "write a compressed copy of the database" }
func (*backupCmd) Usage() string    { return "masterfy backup [-dir <path>]\n" }

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "backup directory, defaults to BACKUP_DIR")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	dir := a.cfg.BackupDir
	if c.dir != "" {
		dir = c.dir
	}
	path, err := service.NewBackupService(a.repo, dir, a.cfg.BackupRetain, a.log).Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(path)
	return subcommands.ExitSuccess
}
