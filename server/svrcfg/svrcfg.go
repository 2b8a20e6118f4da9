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

// Package svrcfg 定義 launcher 的設定與驗證。
package svrcfg

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/server/logger"
)

const (
	DefaultHost     = "localhost"
	DefaultPort     = 8000
	DefaultScanSpan = 10
)

// SvrCfg 是 launcher 的設定。零值欄位由 Valid 補上預設值。
type SvrCfg struct {
	Log *slog.Logger

	// Root 是靜態檔案根目錄，預設為目前工作目錄。
	Root string
	// FS 若不為 nil，取代 Root 作為檔案來源（例如 go:embed 的 demo 資料）。
	FS fs.FS

	Host string
	Port int
	// Scan 為 true 時，Port 被占用就往後找，最多嘗試 ScanSpan 個 port。
	Scan     bool
	ScanSpan int

	// OpenBrowser 為 true 時，每次啟動成功後開啟瀏覽器。
	OpenBrowser bool
	// LiveBundle 為 true 時提供 /__launcher/bundle：每次請求都從 <root>/data 即時合併。
	LiveBundle bool
}

// Valid 檢查設定並補上預設值。
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log = logger.NewDefaultLogger(logger.ModeSilence)
	}

	if sc.Host == "" {
		sc.Host = DefaultHost
	}
	if sc.Port == 0 {
		sc.Port = DefaultPort
	}
	if sc.Port < 1 || sc.Port > 65535 {
		return errs.Fatalf("port out of range: %d", sc.Port)
	}
	// 1 <= ScanSpan <= 100
	if sc.ScanSpan <= 0 {
		sc.ScanSpan = DefaultScanSpan
	}
	sc.ScanSpan = min(100, sc.ScanSpan)
	if sc.Port+sc.ScanSpan-1 > 65535 {
		sc.ScanSpan = 65535 - sc.Port + 1
	}

	if sc.FS != nil {
		return nil
	}
	if sc.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errs.Wrap(err, "resolve working directory failed")
		}
		sc.Root = wd
	}
	info, err := os.Stat(sc.Root)
	if err != nil {
		return errs.WrapPath(err, "root not accessible", sc.Root)
	}
	if !info.IsDir() {
		return errs.NewFatal("root is not a directory").WithPath(sc.Root)
	}
	return nil
}

// Files 回傳要提供的檔案來源。
func (sc *SvrCfg) Files() fs.FS {
	if sc.FS != nil {
		return sc.FS
	}
	return os.DirFS(sc.Root)
}

// Ports 回傳依序嘗試的 port。
func (sc *SvrCfg) Ports() []int {
	if !sc.Scan {
		return []int{sc.Port}
	}
	out := make([]int, 0, sc.ScanSpan)
	for p := sc.Port; p < sc.Port+sc.ScanSpan; p++ {
		out = append(out, p)
	}
	return out
}
