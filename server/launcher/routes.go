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

package launcher

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/zintix-labs/gamepack"
	"github.com/zintix-labs/gamepack/server/httperr"
	"github.com/zintix-labs/gamepack/server/netsvr"
	"github.com/zintix-labs/gamepack/server/netsvr/middleware"
)

const (
	StatusPath = "/__launcher/status"
	BundlePath = "/__launcher/bundle"
)

// routes 註冊 middleware、控制端點與靜態檔案。
func (l *Launcher) routes(svr netsvr.NetSvr) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(l.cfg.Log))
	svr.Use(middleware.Recover(l.cfg.Log))
	svr.Use(middleware.NoCache)
	svr.Use(middleware.Compression)

	svr.Group("/__launcher", func(r netsvr.NetRouter) {
		r.Get("/status", l.handleStatus)
		if l.cfg.LiveBundle {
			r.Get("/bundle", l.handleBundle)
		}
	})
	svr.Handle("/*", http.FileServer(http.FS(l.cfg.Files())))
}

func (l *Launcher) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(l.Status())
}

// handleBundle 從 <root>/data 即時合併 bundle，內容與 bundled-data.json 相同。
// 前端可以在開發時直接讀這個端點，不必每次改資料都重新執行 bundle。
func (l *Launcher) handleBundle(w http.ResponseWriter, r *http.Request) {
	data, err := fs.Sub(l.cfg.Files(), "data")
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	b, err := gamepack.New(data, gamepack.WithLogger(l.cfg.Log))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	res, err := b.Build(r.Context())
	if err != nil {
		httperr.Log(l.cfg.Log, "live bundle failed", err)
		httperr.Errs(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := res.Bundle.Encode(w, false); err != nil {
		httperr.Log(l.cfg.Log, "write live bundle failed", err)
	}
}
