// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// bundle 把資料目錄下的 JSON 合併成單一 bundle，並產生 Go 原始碼（常數 + loader 設定）。
//
//	go run ./cmd/bundle -data src/data -out src/gamedata
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sort"
	"syscall"

	"github.com/zintix-labs/gamepack"
	"github.com/zintix-labs/gamepack/envcfg"
	"github.com/zintix-labs/gamepack/perf"
	"github.com/zintix-labs/gamepack/schema"
	"github.com/zintix-labs/gamepack/server/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type config struct {
	env     envcfg.Bundle
	dryRun  bool
	quiet   bool
	indent  bool
	cnst    string
	pprof   string
	logMode logger.LogMode
}

func bindVar(args []string, stderr io.Writer) (*config, error) {
	cfg := new(config)
	if err := envcfg.Load(&cfg.env); err != nil {
		return nil, err
	}
	fs := flag.NewFlagSet("bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.env.DataDir, "data", cfg.env.DataDir, "data directory (config/entities/quiz/maps)")
	fs.StringVar(&cfg.env.OutDir, "out", cfg.env.OutDir, "output directory for generated files")
	fs.StringVar(&cfg.env.Package, "pkg", cfg.env.Package, "package name of generated Go files")
	fs.StringVar(&cfg.cnst, "const", "", "name of the bundle constant (default GameData)")
	fs.StringVar(&cfg.env.BaseURL, "base-url", cfg.env.BaseURL, "base URL the generated loader falls back to")
	fs.StringVar(&cfg.env.Schema, "schema", cfg.env.Schema, "schema yaml listing expected assets (default built-in)")
	fs.BoolVar(&cfg.env.JSON, "json", cfg.env.JSON, "also write bundled-data.json")
	fs.BoolVar(&cfg.env.Strict, "strict", cfg.env.Strict, "treat missing expected assets as errors")
	fs.BoolVar(&cfg.indent, "indent", false, "indent JSON inside the Go constant")
	fs.BoolVar(&cfg.dryRun, "dry-run", false, "build and print stats without writing files")
	fs.BoolVar(&cfg.quiet, "quiet", false, "only print errors")
	fs.StringVar(&cfg.env.LogMode, "log-mode", cfg.env.LogMode, "log mode: dev|prod|quiet|silence")
	fs.StringVar(&cfg.pprof, "pprof", "", "write a profile to "+perf.DefaultDir+": cpu|heap|allocs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.pprof != "" && !slices.Contains(perf.Modes(), cfg.pprof) {
		return nil, perf.ErrMode.WithPath(cfg.pprof)
	}

	mode, err := logger.ParseMode(cfg.env.LogMode)
	if err != nil {
		return nil, err
	}
	if cfg.quiet {
		mode = logger.ModeQuiet
	}
	cfg.logMode = mode
	return cfg, nil
}

func (cfg *config) options(stderr io.Writer) ([]gamepack.Option, error) {
	log := logger.NewWriterLogger(stderr, cfg.logMode)
	opts := []gamepack.Option{
		gamepack.WithLogger(log),
		gamepack.WithStrict(cfg.env.Strict),
	}
	if !cfg.quiet {
		opts = append(opts, gamepack.WithProgress(stderr))
	}
	if cfg.env.Schema != "" {
		sch, err := schema.Load(cfg.env.Schema)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gamepack.WithSchema(sch))
	}
	return opts, nil
}

func (cfg *config) output() gamepack.Output {
	return gamepack.Output{
		Dir:       cfg.env.OutDir,
		Package:   cfg.env.Package,
		ConstName: cfg.cnst,
		BaseURL:   cfg.env.BaseURL,
		JSON:      cfg.env.JSON,
		Indent:    cfg.indent,
	}
}

// run 回傳 process exit code：0 成功、1 建置或寫檔失敗、2 參數錯誤。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := bindVar(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "❌", err)
		return 2
	}
	log := logger.NewWriterLogger(stderr, cfg.logMode)
	defer envcfg.Telemetry(ctx, "bundle", log)()

	code := 0
	if err := perf.Run(cfg.pprof, perf.DefaultDir, func() { code = cfg.execute(ctx, stdout, stderr) }); err != nil {
		fmt.Fprintln(stderr, "❌", err)
		return 1
	}
	return code
}

func (cfg *config) execute(ctx context.Context, stdout, stderr io.Writer) int {
	opts, err := cfg.options(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "❌", err)
		return 2
	}
	b, err := gamepack.NewFromDir(cfg.env.DataDir, opts...)
	if err != nil {
		fmt.Fprintln(stderr, "❌", err)
		return 1
	}
	res, err := b.Build(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "❌ bundle failed:", err)
		return 1
	}

	if cfg.dryRun {
		arts, err := res.Render(cfg.output())
		if err != nil {
			fmt.Fprintln(stderr, "❌", err)
			return 1
		}
		if !cfg.quiet {
			names := make([]string, 0, len(arts))
			for n := range arts {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(stdout, "would write %s (%d bytes)\n", n, len(arts[n]))
			}
			res.Stats.StdOut(stdout, "Bundle Stats (dry run)")
		}
		return 0
	}

	written, err := res.Write(cfg.output())
	if err != nil {
		fmt.Fprintln(stderr, "❌ write failed:", err)
		return 1
	}
	if !cfg.quiet {
		for _, p := range written {
			fmt.Fprintln(stdout, "✅", p)
		}
		res.Stats.StdOut(stdout, "Bundle Stats")
	}
	return 0
}
