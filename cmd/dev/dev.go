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

// dev 以內嵌的範例遊戲資料啟動 launcher：自動找可用 port、開啟瀏覽器、提供即時 bundle。
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zintix-labs/gamepack"
	"github.com/zintix-labs/gamepack/demo"
	"github.com/zintix-labs/gamepack/server"
	"github.com/zintix-labs/gamepack/server/logger"
)

func main() {
	headless := flag.Bool("headless", false, "run without the terminal panel")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *headless)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, headless bool) error {
	log := logger.NewDefaultLogger(logger.ModeDev)
	if err := checkDemo(ctx, log, os.Stderr); err != nil {
		log.Error("embedded demo data is broken", slog.Any("err", err))
		return err
	}

	scfg := demo.NewServerConfig(log)
	opts := server.Options{
		Headless: headless,
		LogMode:  logger.ModeDev,
		Title:    "gamepack dev (embedded demo)",
	}
	if err := server.Run(ctx, scfg, opts); err != nil {
		log.Error("dev server stopped", slog.Any("err", err))
		return err
	}
	return nil
}

// checkDemo 啟動前先以 bundler 合併一次內嵌資料並印出統計，再以 loader 逐檔回退載入，
// 確保瀏覽器端即時 bundle 與逐檔讀取兩條路徑都拿得到資料。
func checkDemo(ctx context.Context, log *slog.Logger, w io.Writer) error {
	b, err := demo.NewBundler(gamepack.WithLogger(log), gamepack.WithStrict(true))
	if err != nil {
		return err
	}
	res, err := b.Build(ctx)
	if err != nil {
		return err
	}
	res.Stats.StdOut(w, "Demo Bundle")

	data, err := demo.NewLoader(log).Load(ctx)
	if err != nil {
		return err
	}
	log.Info("demo data loaded", slog.Int("assets", data.Count()), slog.Int("bundled", res.Bundle.Count()))
	return nil
}
