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

// Package envcfg 讀取 CLI 的環境變數設定。
//
// 優先序：命令列旗標 > 環境變數 > .env 檔 > 內建預設值。
// 旗標的預設值取自這裡解析出的結構，因此旗標未指定時自然落回環境變數。
package envcfg

import (
	"context"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/telemetry"
)

// Bundle 是 bundle 指令的環境設定。
type Bundle struct {
	DataDir string `env:"GAMEPACK_DATA_DIR" envDefault:"src/data"`
	OutDir  string `env:"GAMEPACK_OUT_DIR" envDefault:"src/gamedata"`
	Package string `env:"GAMEPACK_PACKAGE" envDefault:"gamedata"`
	BaseURL string `env:"GAMEPACK_BASE_URL" envDefault:"http://localhost:8000"`
	Schema  string `env:"GAMEPACK_SCHEMA"`
	JSON    bool   `env:"GAMEPACK_JSON" envDefault:"true"`
	Strict  bool   `env:"GAMEPACK_STRICT"`
	LogMode string `env:"GAMEPACK_LOG_MODE" envDefault:"dev"`
}

// Launch 是 launch / dev 指令的環境設定。
type Launch struct {
	Root       string `env:"GAMEPACK_ROOT" envDefault:"."`
	Host       string `env:"GAMEPACK_HOST" envDefault:"localhost"`
	Port       int    `env:"GAMEPACK_PORT" envDefault:"8000"`
	Scan       bool   `env:"GAMEPACK_SCAN"`
	ScanSpan   int    `env:"GAMEPACK_SCAN_SPAN" envDefault:"10"`
	NoBrowser  bool   `env:"GAMEPACK_NO_BROWSER"`
	Headless   bool   `env:"GAMEPACK_HEADLESS"`
	LiveBundle bool   `env:"GAMEPACK_LIVE_BUNDLE"`
	LogMode    string `env:"GAMEPACK_LOG_MODE" envDefault:"dev"`
}

// Load 先嘗試載入 .env（不存在不算錯誤），再把環境變數解析進 target。
// files 為空時讀取工作目錄下的 .env。
func Load(target any, files ...string) error {
	// .env 只是本機開發的便利，缺檔時靜默略過
	_ = godotenv.Load(files...)
	if err := env.Parse(target); err != nil {
		return errs.Wrap(err, "parse env failed")
	}
	return nil
}

// Telemetry 在設定了 OTLP endpoint 時啟用 tracing，回傳的函式用於結束前 flush。
// 初始化失敗只記錄警告，程式照常執行。
func Telemetry(ctx context.Context, component string, log *slog.Logger) func() {
	if !telemetry.Enabled() {
		return func() {}
	}
	shutdown, err := telemetry.Setup(ctx, component)
	if err != nil {
		log.Warn("telemetry setup failed, continuing without tracing", "err", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("telemetry shutdown failed", "err", err)
		}
	}
}
