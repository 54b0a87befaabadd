/*
 * main.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Command disloc runs a job of dislocation monopole calculations described by a
//TOML file:
//
//	disloc -config job.toml
//
//It exits with status 1 if any calculation fails, and 2 if the job can't be run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rmera/disloc/runner"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("disloc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	config := fs.String("config", "job.toml", "TOML job file")
	level := fs.String("log-level", "", "overrides the log level of the job file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := runner.Decode(*config)
	if err != nil {
		fmt.Fprintln(stderr, "disloc:", err)
		return 2
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	lvl, err := cfg.Level()
	if err != nil {
		fmt.Fprintln(stderr, "disloc:", err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	sum, err := runner.Run(ctx, cfg, logger)
	if err != nil {
		logger.Error("job aborted", "error", err)
		return 2
	}
	for _, f := range sum.Failed {
		logger.Warn("failed unit", "kind", f.Kind, "potential", f.Potential, "dislocation", f.Dislocation, "dir", f.Dir)
	}
	if len(sum.Failed) > 0 {
		return 1
	}
	return 0
}
