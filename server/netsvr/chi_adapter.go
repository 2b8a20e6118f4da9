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

package netsvr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/gamepack/errs"
)

var ErrNoFreePort = errs.NewFatal("no free port")

// ChiAdapter 以 chi 實作 NetSvr。
//
// 與 http.Server.ListenAndServe 不同，ChiAdapter 先 Listen 再 Run：
// 綁定失敗（port 被占用）會在 Listen 同步回報，launcher 才能據此換 port 或顯示錯誤。
type ChiAdapter struct {
	router chi.Router
	server *http.Server
	ln     net.Listener
}

// NewChiServer 建立 ChiAdapter，含 http.Server 與預設 timeout。
func NewChiServer() *ChiAdapter {
	cr := chi.NewRouter()
	return &ChiAdapter{
		router: cr,
		server: &http.Server{
			Handler:           cr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Listen 依序嘗試 ports，綁定第一個可用的 port 並回傳它。
// 只有「位址已被使用」會換下一個 port；其他錯誤直接回傳。
func (c *ChiAdapter) Listen(host string, ports []int) (int, error) {
	if c.ln != nil {
		return c.Port(), nil
	}
	var last error
	for _, p := range ports {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			c.ln = ln
			c.server.Addr = ln.Addr().String()
			return c.Port(), nil
		}
		last = err
		if !isAddrInUse(err) {
			return 0, errs.WrapPath(err, "listen failed", net.JoinHostPort(host, strconv.Itoa(p)))
		}
	}
	if last == nil {
		return 0, ErrNoFreePort
	}
	e := ErrNoFreePort.WithPath(portRange(ports))
	e.Cause = last
	return 0, e
}

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// Windows 回傳 WSAEADDRINUSE，不會對應到 syscall.EADDRINUSE
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "only one usage of each socket address")
}

func portRange(ports []int) string {
	if len(ports) == 0 {
		return ""
	}
	if len(ports) == 1 {
		return strconv.Itoa(ports[0])
	}
	return strconv.Itoa(ports[0]) + "-" + strconv.Itoa(ports[len(ports)-1])
}

// Ready 檢查 adapter 是否已完整組裝並完成綁定。
func (c *ChiAdapter) Ready() bool {
	return c != nil && c.router != nil && c.server != nil && c.ln != nil &&
		c.server.Handler == c.router
}

// Run 在已綁定的 listener 上提供服務；正常關閉時回傳 nil。
func (c *ChiAdapter) Run() error {
	if c.ln == nil {
		return errs.NewFatal("server is not listening")
	}
	err := c.server.Serve(c.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	if c.ln == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) Use(mw func(http.Handler) http.Handler) {
	c.router.Use(mw)
}

func (c *ChiAdapter) Get(path string, h http.HandlerFunc) {
	c.router.Get(path, h)
}

func (c *ChiAdapter) Handle(pattern string, h http.Handler) {
	c.router.Handle(pattern, h)
}

func (c *ChiAdapter) Group(path string, fn func(subRouter NetRouter)) {
	c.router.Route(path, func(r chi.Router) {
		fn(&ChiAdapter{router: r})
	})
}

// Port 回傳實際綁定的 port；尚未綁定時回傳 0。
func (c *ChiAdapter) Port() int {
	if c.ln == nil {
		return 0
	}
	if a, ok := c.ln.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Handler 回傳根路由，供測試以 httptest 直接呼叫。
func (c *ChiAdapter) Handler() http.Handler {
	return c.router
}
