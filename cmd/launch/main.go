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

// launch 在本機以靜態檔案伺服器提供遊戲目錄，並開啟終端控制面板。
//
//	go run ./cmd/launch -root . -port 8000
//	go run ./cmd/launch -headless -live-bundle
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zintix-labs/gamepack/envcfg"
	"github.com/zintix-labs/gamepack/server"
	"github.com/zintix-labs/gamepack/server/logger"
	"github.com/zintix-labs/gamepack/server/svrcfg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type config struct {
	env  envcfg.Launch
	mode logger.LogMode
}

func bindVar(args []string, stderr io.Writer) (*config, error) {
	cfg := new(config)
	if err := envcfg.Load(&cfg.env); err != nil {
		return nil, err
	}
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.env.Root, "root", cfg.env.Root, "directory to serve")
	fs.StringVar(&cfg.env.Host, "host", cfg.env.Host, "host to bind")
	fs.IntVar(&cfg.env.Port, "port", cfg.env.Port, "port to bind")
	fs.BoolVar(&cfg.env.Scan, "scan", cfg.env.Scan, "try following ports when the port is busy")
	fs.IntVar(&cfg.env.ScanSpan, "scan-span", cfg.env.ScanSpan, "number of ports to try when -scan is set (max 100)")
	fs.BoolVar(&cfg.env.Headless, "headless", cfg.env.Headless, "run without the terminal panel")
	fs.BoolVar(&cfg.env.NoBrowser, "no-browser", cfg.env.NoBrowser, "do not open the browser on start")
	fs.BoolVar(&cfg.env.LiveBundle, "live-bundle", cfg.env.LiveBundle, "serve a freshly merged bundle from <root>/data")
	fs.StringVar(&cfg.env.LogMode, "log-mode", cfg.env.LogMode, "log mode: dev|prod|quiet|silence")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	mode, err := logger.ParseMode(cfg.env.LogMode)
	if err != nil {
		return nil, err
	}
	cfg.mode = mode
	return cfg, nil
}

func (cfg *config) svrCfg(stderr io.Writer) *svrcfg.SvrCfg {
	return &svrcfg.SvrCfg{
		Log:         logger.NewWriterLogger(stderr, cfg.mode),
		Root:        cfg.env.Root,
		Host:        cfg.env.Host,
		Port:        cfg.env.Port,
		Scan:        cfg.env.Scan,
		ScanSpan:    cfg.env.ScanSpan,
		OpenBrowser: !cfg.env.NoBrowser,
		LiveBundle:  cfg.env.LiveBundle,
	}
}

// run 回傳 process exit code：0 正常結束、1 執行失敗、2 參數錯誤。
func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := bindVar(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "❌", err)
		return 2
	}
	sc := cfg.svrCfg(stderr)
	if cfg.env.Headless {
		// 沒有面板時 log 直接寫終端，改走非阻塞 handler，結束前 drain
		log, ah := logger.NewAsync(stderr, 4096, cfg.mode)
		defer ah.Close()
		sc.Log = log
	}
	defer envcfg.Telemetry(ctx, "launcher", sc.Log)()

	opts := server.Options{
		Headless: cfg.env.Headless,
		LogMode:  cfg.mode,
		Title:    "gamepack launcher",
	}
	if err := server.Run(ctx, sc, opts); err != nil {
		fmt.Fprintln(stderr, "❌", err)
		return 1
	}
	return 0
}
