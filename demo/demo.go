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

// Package demo 以內嵌的範例資料組裝 Bundler、Loader 與 launcher 設定，供 cmd/dev 與測試使用。
package demo

import (
	"io/fs"
	"log/slog"

	"github.com/zintix-labs/gamepack"
	"github.com/zintix-labs/gamepack/demo/demo_data"
	"github.com/zintix-labs/gamepack/loader"
	"github.com/zintix-labs/gamepack/server/svrcfg"
)

// SiteFS 回傳範例網站根目錄（含 index.html）。
func SiteFS() fs.FS {
	return demo_data.FS
}

// DataFS 回傳資料目錄（config / entities / quiz / maps）。
func DataFS() fs.FS {
	sub, err := fs.Sub(demo_data.FS, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewBundler 以範例資料建立 Bundler。
func NewBundler(opts ...gamepack.Option) (*gamepack.Bundler, error) {
	return gamepack.New(DataFS(), opts...)
}

// NewLoader 建立只走逐檔回退的 Loader：資源直接從內嵌檔案讀取。
func NewLoader(log *slog.Logger) *loader.Loader {
	return loader.New(
		loader.WithFallback(loader.FSFetcher(SiteFS())),
		loader.WithLogger(log),
	)
}

// NewServerConfig 回傳 dev 模式的 launcher 設定：內嵌網站、即時 bundle、自動找 port 並開啟瀏覽器。
func NewServerConfig(log *slog.Logger) *svrcfg.SvrCfg {
	return &svrcfg.SvrCfg{
		Log:         log,
		FS:          SiteFS(),
		Root:        "(embedded demo)",
		Port:        svrcfg.DefaultPort,
		Scan:        true,
		OpenBrowser: true,
		LiveBundle:  true,
	}
}
