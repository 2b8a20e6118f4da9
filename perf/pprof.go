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

// Package perf 為 CLI 提供一次性的 pprof 量測，用於大型資料目錄的 bundle 效能分析。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/gamepack/errs"
)

// DefaultDir 是 profile 檔的預設輸出目錄。
const DefaultDir = "build/profiling"

var ErrMode = errs.NewWarn("unknown pprof mode")

// Modes 是可用的量測模式；空字串代表不量測。
func Modes() []string { return []string{"cpu", "heap", "allocs"} }

// Run 依 mode 量測 exe 並把 profile 寫到 dir/<mode>.pprof。
//   - cpu：exe 執行期間的 CPU profile。
//   - heap：exe 結束後 GC 一次再寫 in-use 快照。
//   - allocs：exe 結束後寫累積配置。
//
// mode 為空時只執行 exe。
func Run(mode, dir string, exe func()) error {
	if mode == "" {
		exe()
		return nil
	}
	switch mode {
	case "cpu", "heap", "allocs":
	default:
		return ErrMode.WithPath(mode)
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.WrapPath(err, "create profiling dir failed", dir)
	}
	path := filepath.Join(dir, mode+".pprof")
	f, err := os.Create(path)
	if err != nil {
		return errs.WrapPath(err, "create profile failed", path)
	}
	defer f.Close()

	if mode == "cpu" {
		if err := pprof.StartCPUProfile(f); err != nil {
			return errs.WrapPath(err, "start cpu profile failed", path)
		}
		exe()
		pprof.StopCPUProfile()
		return nil
	}

	exe()
	if mode == "heap" {
		// 讓快照只留下仍存活的物件
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errs.WrapPath(err, "write heap profile failed", path)
		}
		return nil
	}
	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		return errs.WrapPath(err, "write allocs profile failed", path)
	}
	return nil
}
