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

// Package launcher 在本機啟動靜態檔案伺服器並開啟瀏覽器。
//
// Launcher 持有唯一的 server handle：Start / Stop / Status 以 mutex 串行化，
// 一個 goroutine 跑 serve loop。綁定或關閉失敗只會反映在 Status，不會讓呼叫端程序結束。
//
// Launcher 也實作 app.Component：headless 模式下交給 app.App，收到信號時優雅關閉。
package launcher

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/browser"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/server/netsvr"
	"github.com/zintix-labs/gamepack/server/svrcfg"
)

// State 是 launcher 的狀態。
type State string

const (
	Stopped State = "stopped"
	Running State = "running"
	Failed  State = "error"
)

// Status 是對外顯示的狀態快照。
type Status struct {
	State State  `json:"state"`
	Port  int    `json:"port,omitempty"`
	URL   string `json:"url,omitempty"`
	Root  string `json:"root"`
	Err   string `json:"error,omitempty"`
}

// Text 回傳給人看的一行狀態。
func (s Status) Text() string {
	switch s.State {
	case Running:
		return "running at " + s.URL
	case Failed:
		return "error: " + s.Err
	default:
		return "stopped"
	}
}

var ErrNotRunning = errs.NewWarn("server is not running")

// Option 設定 Launcher。
type Option func(*Launcher)

// WithOpener 取代預設的瀏覽器開啟方式（測試用）。
func WithOpener(open func(url string) error) Option {
	return func(l *Launcher) {
		if open != nil {
			l.open = open
		}
	}
}

// WithStatusHook 在每次狀態改變後呼叫 fn（不持有鎖）。
func WithStatusHook(fn func(Status)) Option {
	return func(l *Launcher) { l.hook = fn }
}

// Launcher 控制靜態檔案伺服器的啟停。
type Launcher struct {
	cfg  *svrcfg.SvrCfg
	open func(url string) error
	hook func(Status)

	mu       sync.Mutex
	svr      *netsvr.ChiAdapter
	done     chan struct{}
	serveErr error
	status   Status
}

// New 驗證設定並建立 Launcher，初始狀態為 stopped。
func New(cfg *svrcfg.SvrCfg, opts ...Option) (*Launcher, error) {
	if cfg == nil {
		return nil, errs.NewFatal("launcher config required")
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	l := &Launcher{
		cfg:    cfg,
		open:   openBrowser,
		status: Status{State: Stopped, Root: cfg.Root},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Start 綁定 port 並開始服務。已在運行時直接回傳目前狀態。
func (l *Launcher) Start() (Status, error) {
	l.mu.Lock()
	if l.status.State == Running {
		st := l.status
		l.mu.Unlock()
		return st, nil
	}

	svr := netsvr.NewChiServer()
	l.routes(svr)
	port, err := svr.Listen(l.cfg.Host, l.cfg.Ports())
	if err != nil {
		l.status = Status{State: Failed, Root: l.cfg.Root, Err: err.Error()}
		st := l.status
		l.mu.Unlock()
		l.cfg.Log.Error("launcher start failed", slog.Any("err", err))
		l.notify(st)
		return st, err
	}

	done := make(chan struct{})
	l.svr, l.done, l.serveErr = svr, done, nil
	l.status = Status{State: Running, Port: port, URL: l.url(port), Root: l.cfg.Root}
	st := l.status
	l.mu.Unlock()

	go l.serve(svr, done)
	l.cfg.Log.Info("serving", slog.String("url", st.URL), slog.String("root", st.Root))
	l.notify(st)

	if l.cfg.OpenBrowser {
		if err := l.OpenBrowser(); err != nil {
			l.cfg.Log.Warn("open browser failed", slog.Any("err", err))
		}
	}
	return st, nil
}

func (l *Launcher) serve(svr *netsvr.ChiAdapter, done chan struct{}) {
	err := svr.Run()

	l.mu.Lock()
	if l.svr == svr {
		// serve loop 自行結束（不是 Stop 造成的）
		l.svr = nil
		if err != nil {
			l.status = Status{State: Failed, Root: l.cfg.Root, Err: err.Error()}
		} else {
			l.status = Status{State: Stopped, Root: l.cfg.Root}
		}
	}
	if l.done == done {
		// Stop→Start 之後舊的 serve loop 才結束時，不能蓋掉新一輪的結果
		l.serveErr = err
	}
	st := l.status
	l.mu.Unlock()

	close(done)
	if err != nil {
		l.cfg.Log.Error("serve loop stopped", slog.Any("err", err))
	}
	l.notify(st)
}

// Stop 優雅關閉伺服器；未運行時不做任何事。
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	svr, done := l.svr, l.done
	if svr == nil {
		l.mu.Unlock()
		return nil
	}
	l.svr = nil
	l.status = Status{State: Stopped, Root: l.cfg.Root}
	l.mu.Unlock()

	err := svr.Shutdown(ctx)
	if err == nil {
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		e := errs.Wrap(err, "shutdown failed")
		l.mu.Lock()
		l.status = Status{State: Failed, Root: l.cfg.Root, Err: e.Error()}
		l.mu.Unlock()
		l.cfg.Log.Error("launcher stop failed", slog.Any("err", e))
		l.notify(l.Status())
		return e
	}
	l.cfg.Log.Info("stopped")
	l.notify(l.Status())
	return nil
}

// Status 回傳目前狀態。
func (l *Launcher) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// OpenBrowser 以預設瀏覽器開啟目前的 URL。
func (l *Launcher) OpenBrowser() error {
	st := l.Status()
	if st.State != Running {
		return ErrNotRunning
	}
	if err := l.open(st.URL); err != nil {
		return errs.WrapPath(err, "open browser failed", st.URL)
	}
	return nil
}

// Run 實作 app.Component：啟動後阻塞到 serve loop 結束。
func (l *Launcher) Run() error {
	if _, err := l.Start(); err != nil {
		return err
	}
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	<-done

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.serveErr
}

// Shutdown 實作 app.Component。
func (l *Launcher) Shutdown(ctx context.Context) error {
	return l.Stop(ctx)
}

func (l *Launcher) notify(st Status) {
	if l.hook != nil {
		l.hook(st)
	}
}

func (l *Launcher) url(port int) string {
	host := l.cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
}

// openBrowser 使用 pkg/browser；它預設把子程序輸出接到 stdout/stderr，面板模式下會弄亂畫面。
func openBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}
