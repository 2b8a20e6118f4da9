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

// Package netsvr 封裝 launcher 的 HTTP server：路由行為與啟停控制分開暴露。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/gamepack/server/app"
)

// NetSvr 是「路由 + 啟停」的完整介面，只交給 launcher 持有。
// 它同時實作 app.Component，headless 模式可直接交給 app.App 管理。
type NetSvr interface {
	NetRouter
	app.Component
}

// NetRouter 只包含路由行為；註冊路由的子模組拿不到 Run/Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)
	Get(path string, h http.HandlerFunc)
	// Handle 掛載任意 handler，pattern 結尾為 "/*" 時匹配整個子樹（例如靜態檔案）。
	Handle(pattern string, h http.Handler)
	Group(path string, fn func(NetRouter))
}
