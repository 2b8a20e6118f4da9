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

// Package logger 組裝 gamepack 各入口（bundle / launch / dev）使用的 slog.Logger。
//
// 兩種常見用法：
//   - CLI：以 ParseMode 解析 -log-mode，再用 NewDefaultLogger 取得寫到 stderr/stdout 的 logger。
//   - 控制面板：終端畫面被 tcell 接管，log 不能直接寫到 stderr，改用 NewWriterLogger 導向面板的 log 區。
//
// headless 的 launch 以 NewAsync 取得非阻塞 logger，access log 不會因終端輸出變慢而拖住請求。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/gamepack/errs"
)

// LogMode 決定 handler 的格式、輸出位置與等級。
type LogMode uint8

const (
	ModeDev     LogMode = iota // text, debug
	ModeProd                   // json, info
	ModeQuiet                  // text, warn 以上
	ModeSilence                // 全部丟棄
)

var modeNames = map[LogMode]string{
	ModeDev:     "ModeDev",
	ModeProd:    "ModeProd",
	ModeQuiet:   "ModeQuiet",
	ModeSilence: "ModeSilence",
}

func (m LogMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode 解析 CLI 的 -log-mode。接受 "ModeDev" / "dev" 等寫法，不分大小寫。
func ParseMode(s string) (LogMode, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Mode"))
	key = strings.TrimPrefix(key, "mode")
	switch key {
	case "dev", "":
		return ModeDev, nil
	case "prod":
		return ModeProd, nil
	case "quiet":
		return ModeQuiet, nil
	case "silence", "silent":
		return ModeSilence, nil
	default:
		return ModeDev, errs.Warnf("unknown log mode: %q", s)
	}
}

// NewDefaultLogger 依 LogMode 預設組裝：dev/quiet 寫 stderr，prod 寫 stdout。
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(buildHandler(mode, nil))
}

// NewWriterLogger 與 NewDefaultLogger 相同，但一律寫到 w。
// prod 模式仍輸出 JSON，其餘模式輸出 text。
func NewWriterLogger(w io.Writer, mode LogMode) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(buildHandler(mode, w))
}

// NewAsync 以 LogMode 組裝寫到 w 的 handler（w 為 nil 時同 NewDefaultLogger），再包上 AsyncHandler。
// 呼叫端持有 *AsyncHandler，結束前應呼叫 Close 以 drain 尚未寫出的紀錄。
func NewAsync(w io.Writer, buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(buildHandler(mode, w), buf)
	return slog.New(ah), ah
}

// AsyncHandler 是 slog.Handler wrapper：Handle 只做 enqueue，背景 goroutine 依序寫出。
// 佇列滿時直接丟棄並計數，不把 I/O 延遲傳回請求路徑。
//
// slog.Logger 會忽略 Handle 回傳的 error；需要處理 I/O error 時請在 next 內自行包裝。
type AsyncHandler struct {
	next slog.Handler
	d    *asyncDispatcher
}

type asyncDispatcher struct {
	ch     chan asyncItem
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	dropCount atomic.Uint64
}

type asyncItem struct {
	ctx     context.Context
	rec     slog.Record
	handler slog.Handler
}

// NewAsyncHandler 以大小為 buf 的佇列包裝 next。
func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = buildHandler(ModeDev, nil)
	}
	if buf <= 0 {
		buf = 1024
	}

	d := &asyncDispatcher{
		ch:     make(chan asyncItem, buf),
		closed: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.worker()

	return &AsyncHandler{next: next, d: d}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.d != nil
}

// Dropped 回傳因佇列滿或已關閉而丟棄的筆數。
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil || h.d == nil {
		return 0
	}
	return h.d.dropCount.Load()
}

// Close 停止接收新紀錄並等待佇列寫完。可重複呼叫。
func (h *AsyncHandler) Close() {
	if h == nil || h.d == nil {
		return
	}
	h.d.once.Do(func() { close(h.d.closed) })
	h.d.wg.Wait()
}

func (d *asyncDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case it := <-d.ch:
			it.write()
		case <-d.closed:
			for {
				select {
				case it := <-d.ch:
					it.write()
				default:
					return
				}
			}
		}
	}
}

func (it asyncItem) write() {
	if it.handler != nil {
		_ = it.handler.Handle(it.ctx, it.rec)
	}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if h == nil || h.d == nil {
		return nil
	}
	select {
	case <-h.d.closed:
		h.d.dropCount.Add(1)
		return nil
	default:
	}

	// Record 內含可變引用，跨 goroutine 前必須 Clone
	it := asyncItem{ctx: ctx, rec: r.Clone(), handler: h.next}
	select {
	case h.d.ch <- it:
	default:
		h.d.dropCount.Add(1)
	}
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), d: h.d}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), d: h.d}
}

// buildHandler 依模式組裝 handler；w 為 nil 時使用模式預設的輸出。
func buildHandler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeQuiet:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
	case ModeSilence:
		return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
