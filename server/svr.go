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

// Package server 組裝 launcher 的執行方式：互動面板或 headless。
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/server/app"
	"github.com/zintix-labs/gamepack/server/launcher"
	"github.com/zintix-labs/gamepack/server/logger"
	"github.com/zintix-labs/gamepack/server/panel"
	"github.com/zintix-labs/gamepack/server/svrcfg"
)

// Options 控制 Run 的組裝方式。
type Options struct {
	// Headless 為 true 時不開面板，由 app 管理生命週期（SIGINT/SIGTERM 或 ctx 結束即關閉）。
	Headless bool
	// LogMode 是面板模式下寫入面板的 log 模式；headless 模式沿用 SvrCfg.Log。
	LogMode logger.LogMode
	// Title 顯示在面板頂端。
	Title string
	// Screen 為 nil 時使用 tcell.NewScreen()；測試可注入 SimulationScreen（尚未 Init）。
	Screen tcell.Screen
	// Launcher 額外的 launcher 選項，例如 launcher.WithOpener。
	Launcher []launcher.Option
}

// Run 是 server 套件的組裝器與啟動入口。
//
// 它負責：
//  1. 驗證 SvrCfg。
//  2. 建立 launcher（靜態檔案 + 狀態端點 + 可選的即時 bundle）。
//  3. 依 Options 選擇面板或 headless 執行，並阻塞到結束。
//
// 驗證失敗時錯誤也會寫到 stderr，避免 logger 尚未可用時看不到原因。
func Run(ctx context.Context, sCfg *svrcfg.SvrCfg, opts Options) error {
	if sCfg == nil {
		return errs.NewFatal("server config required")
	}
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if opts.Headless {
		return runHeadless(ctx, sCfg, opts)
	}
	return runPanel(ctx, sCfg, opts)
}

func runHeadless(ctx context.Context, sCfg *svrcfg.SvrCfg, opts Options) error {
	l, err := launcher.New(sCfg, opts.Launcher...)
	if err != nil {
		return err
	}
	err = app.NewWith(l).WithLogger(sCfg.Log).RunContext(ctx)
	if err != nil {
		sCfg.Log.Error("launcher stopped", slog.Any("err", err))
	}
	return err
}

func runPanel(ctx context.Context, sCfg *svrcfg.SvrCfg, opts Options) error {
	screen := opts.Screen
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return errs.Wrap(err, "create terminal screen failed")
		}
		screen = s
	}
	if err := screen.Init(); err != nil {
		return errs.Wrap(err, "init terminal screen failed")
	}
	defer screen.Fini()

	var p *panel.Panel
	lopts := append([]launcher.Option{
		launcher.WithStatusHook(func(st launcher.Status) {
			if p != nil {
				p.OnStatus(st)
			}
		}),
	}, opts.Launcher...)
	l, err := launcher.New(sCfg, lopts...)
	if err != nil {
		return err
	}
	p = panel.New(screen, l, opts.Title)
	// 面板占用終端，log 改寫到面板的 log 區
	sCfg.Log = logger.NewWriterLogger(p, opts.LogMode)

	// 啟動失敗（例如 port 被占用）仍停留在面板，由使用者按 s 重試
	_, _ = l.Start()
	return p.Run(ctx)
}
