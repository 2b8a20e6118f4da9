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

// Package panel 是 launcher 的終端控制面板：顯示狀態、最近的 log，並以按鍵控制啟停。
//
//	s 啟動   x 停止   o 開啟瀏覽器   q 離開（Esc / Ctrl-C 亦同）
//
// 面板擁有整個終端畫面，因此 log 必須導向 Panel（它實作 io.Writer），不能寫 stderr。
package panel

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/gamepack/server/launcher"
)

const (
	maxLogLines = 500
	stopTimeout = 5 * time.Second
)

// Controller 是面板控制的對象，*launcher.Launcher 即為實作。
type Controller interface {
	Start() (launcher.Status, error)
	Stop(ctx context.Context) error
	Status() launcher.Status
	OpenBrowser() error
}

type quitEvent struct{}

// Panel 是終端控制面板。
type Panel struct {
	screen tcell.Screen
	ctl    Controller
	title  string

	mu   sync.Mutex
	logs []string
	part []byte // 尚未遇到換行的片段

	// drawn 在每次重繪完成後於事件迴圈 goroutine 呼叫
	drawn func()
}

// New 建立面板。screen 必須已經 Init，結束後由呼叫端 Fini。
func New(screen tcell.Screen, ctl Controller, title string) *Panel {
	if title == "" {
		title = "gamepack launcher"
	}
	return &Panel{screen: screen, ctl: ctl, title: title}
}

// Write 把 log 文字加入面板的 log 區並要求重繪。可安全地被多個 goroutine 呼叫。
func (p *Panel) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.part = append(p.part, b...)
	for {
		i := bytes.IndexByte(p.part, '\n')
		if i < 0 {
			break
		}
		p.appendLocked(string(p.part[:i]))
		p.part = p.part[i+1:]
	}
	p.mu.Unlock()
	p.Refresh()
	return len(b), nil
}

func (p *Panel) appendLocked(line string) {
	p.logs = append(p.logs, strings.TrimRight(line, "\r"))
	if over := len(p.logs) - maxLogLines; over > 0 {
		p.logs = append(p.logs[:0], p.logs[over:]...)
	}
}

// Logs 回傳目前保留的 log 行。
func (p *Panel) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.logs...)
}

// Refresh 要求事件迴圈重繪；可作為 launcher.WithStatusHook 的回呼。
func (p *Panel) Refresh() {
	_ = p.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// OnStatus 是 launcher.WithStatusHook 可直接使用的形式。
func (p *Panel) OnStatus(launcher.Status) { p.Refresh() }

// Run 執行事件迴圈，直到按下離開鍵或 ctx 結束；離開前會停止伺服器。
func (p *Panel) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = p.screen.PostEvent(tcell.NewEventInterrupt(quitEvent{}))
	}()

	p.draw()
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			// screen 已被 Fini
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if p.handleKey(ev) {
				return p.shutdown()
			}
		case *tcell.EventResize:
			p.screen.Sync()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(quitEvent); ok {
				return p.shutdown()
			}
		}
		p.draw()
	}
}

// handleKey 處理按鍵；回傳 true 代表離開。
func (p *Panel) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}
	switch ev.Rune() {
	case 's', 'S':
		if _, err := p.ctl.Start(); err != nil {
			p.note("start failed: " + err.Error())
		}
	case 'x', 'X':
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := p.ctl.Stop(ctx); err != nil {
			p.note("stop failed: " + err.Error())
		}
	case 'o', 'O':
		if err := p.ctl.OpenBrowser(); err != nil {
			p.note("open failed: " + err.Error())
		}
	case 'q', 'Q':
		return true
	}
	return false
}

func (p *Panel) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return p.ctl.Stop(ctx)
}

func (p *Panel) note(line string) {
	p.mu.Lock()
	p.appendLocked(line)
	p.mu.Unlock()
}

var (
	styleTitle   = tcell.StyleDefault.Bold(true)
	styleHelp    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleRunning = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStopped = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

func statusStyle(s launcher.State) tcell.Style {
	switch s {
	case launcher.Running:
		return styleRunning
	case launcher.Failed:
		return styleError
	default:
		return styleStopped
	}
}

func (p *Panel) draw() {
	st := p.ctl.Status()
	w, h := p.screen.Size()
	p.screen.Clear()

	p.text(0, 0, w, p.title, styleTitle)
	x := p.text(0, 2, w, "Status: ", tcell.StyleDefault)
	p.text(x, 2, w, st.Text(), statusStyle(st.State))
	p.text(0, 3, w, "Root:   "+st.Root, tcell.StyleDefault)
	p.text(0, 5, w, "[s] start  [x] stop  [o] open browser  [q] quit", styleHelp)

	logs := p.Logs()
	top := 7
	if rows := h - top; rows > 0 {
		if len(logs) > rows {
			logs = logs[len(logs)-rows:]
		}
		for i, line := range logs {
			p.text(0, top+i, w, line, tcell.StyleDefault)
		}
	}
	p.screen.Show()
	if p.drawn != nil {
		p.drawn()
	}
}

// text 從 (x, y) 寫出 s，寬字元（CJK）占兩格；超過 maxX 截斷。回傳下一個可用的 x。
func (p *Panel) text(x, y, maxX int, s string, style tcell.Style) int {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > maxX {
			break
		}
		p.screen.SetContent(x, y, r, nil, style)
		x += rw
	}
	return x
}
