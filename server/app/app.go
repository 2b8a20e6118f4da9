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

// Package app 管理長時間運行元件的生命週期：統一啟動、收到信號或任一元件結束時統一關閉。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zintix-labs/gamepack/server/logger"
)

const defaultShutdownTimeout = 5 * time.Second

// App 啟動所有註冊的 Component，並在收到 SIGINT/SIGTERM、ctx 結束或任一 Component 的 Run 返回時協調優雅關閉。
type App struct {
	comps   []Component
	log     *slog.Logger
	timeout time.Duration
}

// New 建立一個新的 App 實例。
func New() *App {
	return &App{
		log:     logger.NewDefaultLogger(logger.ModeSilence),
		timeout: defaultShutdownTimeout,
	}
}

// NewWith 是 New 的語法糖，允許在建立時直接註冊多個 Component。
func NewWith(comps ...Component) *App {
	app := New()
	for _, c := range comps {
		app.Register(c)
	}
	return app
}

// Register 將一個 Component 註冊到 App 中。
func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// WithLogger 指定關閉過程的 logger。
func (a *App) WithLogger(log *slog.Logger) *App {
	if log != nil {
		a.log = log
	}
	return a
}

// WithShutdownTimeout 指定優雅關閉的期限。
func (a *App) WithShutdownTimeout(td time.Duration) *App {
	if td > 0 {
		a.timeout = td
	}
	return a
}

// Run 等同 RunContext(context.Background())。
func (a *App) Run() error {
	return a.RunContext(context.Background())
}

// RunContext 並行啟動所有 Component 並阻塞，直到：
//   - 收到 SIGINT/SIGTERM 或 ctx 結束：優雅關閉後回傳 nil。
//   - 任一 Component.Run 返回：優雅關閉後回傳該 Component 的結果（正常結束為 nil）。
func (a *App) RunContext(ctx context.Context) error {
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.log.Info("signal received, shutting down", slog.String("signal", sig.String()))
		a.gracefulShutdown()
		return nil
	case <-ctx.Done():
		a.gracefulShutdown()
		return nil
	case err := <-errCh:
		a.gracefulShutdown()
		return err
	}
}

// gracefulShutdown 在期限內依序呼叫所有 Component.Shutdown。
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Error("shutdown failed", slog.Any("err", err))
		}
	}
}
