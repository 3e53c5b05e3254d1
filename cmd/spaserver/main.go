// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// spaserver serves the SPA bundle in the "build" directory next to its
// executable on 0.0.0.0:$PORT (default 8080), allowing the SPA to be framed
// and accessed cross-origin from anywhere.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/thediveo/spaserver"
	"github.com/thediveo/spaserver/internal/config"
	"github.com/thediveo/spaserver/internal/logging"
	"github.com/thediveo/spaserver/internal/server"
)

// version gets set at link time.
var version = "dev"

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run serves until ctx is done and returns the process exit code: 0 after a
// graceful shutdown, 1 when the server cannot start, 2 on bad arguments.
func run(ctx context.Context, args []string) int {
	flags := flag.NewFlagSet("spaserver", flag.ContinueOnError)
	flags.SetOutput(stdErr)
	showVersion := flags.Bool("version", false, "show version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdOut, version)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stdErr, "cannot load configuration: %v\n", err)
		return 1
	}
	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "cannot initialize logging: %v\n", err)
		return 1
	}

	// Without the SPA bundle directory we fail fast instead of answering each
	// and every request with a 500.
	root, err := os.OpenRoot(cfg.StaticRoot)
	if err != nil {
		fmt.Fprintf(stdErr, "cannot open static root %s: %v\n", cfg.StaticRoot, err)
		return 1
	}
	defer func() { _ = root.Close() }()
	if info, err := fs.Stat(root.FS(), path.Clean("/" + cfg.Index)[1:]); err != nil || !info.Mode().IsRegular() {
		logger.WithFields(logrus.Fields{
			"action":     "startup",
			"staticRoot": cfg.StaticRoot,
			"index":      cfg.Index,
		}).Warn("SPA entry document missing, client routes will fail with 500")
	}

	handler := spaserver.WithPermissiveHeaders(
		server.RequestLog(
			spaserver.NewSPAHandler(root.FS(), cfg.Index, spaserver.WithLogger(logger)),
			logger))

	srv := server.New(cfg, handler, logger)
	if err := srv.Listen(); err != nil {
		fmt.Fprintf(stdErr, "cannot start server: %v\n", err)
		return 1
	}
	if err := srv.Serve(ctx); err != nil {
		fmt.Fprintf(stdErr, "server failed: %v\n", err)
		return 1
	}
	return 0
}
