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

// Package loader 在執行期取得遊戲資料。
//
// 載入順序：先讀完整的 bundle（嵌入常數或 bundled-data.json），
// 失敗時改為並行抓取每一個資源檔並在記憶體中重組。
// 任一資源失敗即整體失敗，呼叫端只會看到 ErrLoadFailed，不會拿到半套資料。
//
// 快取狀態為 empty → loading → ready。並行呼叫 Load 只會觸發一次實際讀取；
// 載入失敗會回到 empty，下一次呼叫可以重試。
package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/zintix-labs/gamepack/bundle"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/schema"
	"github.com/zintix-labs/gamepack/server/logger"
	"github.com/zintix-labs/gamepack/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Data 是載入完成的遊戲資料。
type Data = bundle.Bundle

// ErrLoadFailed 是對外唯一的失敗訊號；實際原因掛在 Cause。
var ErrLoadFailed = errs.NewFatal("game data could not be loaded")

// State 是快取狀態。
type State uint8

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

const flightKey = "gamedata"

// Option 設定 Loader。
type Option func(*Loader)

// WithSource 設定完整 bundle 的來源。
func WithSource(src Source) Option {
	return func(l *Loader) { l.src = src }
}

// WithFallback 設定 bundle 不可用時逐檔抓取的 Fetcher 與資源清單。
// paths 為空時使用 schema 的預設資源清單。
func WithFallback(f Fetcher, paths ...string) Option {
	return func(l *Loader) {
		l.fetch = f
		l.paths = append([]string(nil), paths...)
	}
}

// WithSchema 指定預設題庫與預設回退清單的來源 schema。
func WithSchema(s *schema.Schema) Option {
	return func(l *Loader) {
		if s != nil {
			l.sch = s
		}
	}
}

// WithLogger 指定 logger。
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// Loader 是程序內共用的遊戲資料快取。零值不可用，請以 New 建立。
type Loader struct {
	src   Source
	fetch Fetcher
	paths []string
	sch   *schema.Schema
	log   *slog.Logger

	sf    singleflight.Group
	mu    sync.RWMutex
	state State
	data  *Data
}

// New 建立 Loader。
func New(opts ...Option) *Loader {
	l := &Loader{
		sch: schema.Default(),
		log: logger.NewDefaultLogger(logger.ModeSilence),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State 回傳目前的快取狀態。
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Data 回傳已載入的資料；尚未載入完成時回傳 nil。
func (l *Loader) Data() *Data {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data
}

// Load 回傳遊戲資料。已 ready 時直接回傳快取；否則所有並行呼叫共用同一次載入。
//
// ctx 只控制呼叫端的等待：呼叫端取消時立即回傳 ctx.Err()，
// 但共用的載入會繼續完成，以免一個呼叫端的取消連帶讓其他等待者失敗。
func (l *Loader) Load(ctx context.Context) (*Data, error) {
	if d := l.Data(); d != nil {
		return d, nil
	}
	ch := l.sf.DoChan(flightKey, func() (any, error) {
		return l.loadOnce(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Data), nil
	}
}

func (l *Loader) loadOnce(ctx context.Context) (*Data, error) {
	l.mu.Lock()
	if l.state == StateReady {
		d := l.data
		l.mu.Unlock()
		return d, nil
	}
	l.state = StateLoading
	l.mu.Unlock()

	d, err := l.load(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateEmpty
		l.data = nil
		return nil, err
	}
	l.state = StateReady
	l.data = d
	return d, nil
}

func (l *Loader) load(ctx context.Context) (*Data, error) {
	ctx, span := telemetry.Tracer("loader").Start(ctx, "loader.load")
	defer span.End()

	if l.src != nil {
		raw, err := l.src.Read(ctx)
		if err == nil {
			var d *Data
			if d, err = bundle.Decode(raw); err == nil {
				span.SetAttributes(attribute.String("loader.mode", "bundle"), attribute.Int("loader.assets", d.Count()))
				l.log.Debug("game data loaded from bundle", slog.Int64("version", d.Version), slog.Int("assets", d.Count()))
				return d, nil
			}
		}
		l.log.Warn("bundle unavailable, falling back to individual files", slog.Any("err", err))
	}

	d, err := l.loadIndividual(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		l.log.Error("game data load failed", slog.Any("err", err))
		return nil, err
	}
	span.SetAttributes(attribute.String("loader.mode", "individual"), attribute.Int("loader.assets", d.Count()))
	return d, nil
}

func (l *Loader) fallbackPaths() []string {
	if len(l.paths) > 0 {
		return l.paths
	}
	res := l.sch.Resources()
	out := make([]string, 0, len(res))
	for _, r := range res {
		out = append(out, r.Path())
	}
	return out
}

// loadIndividual 並行抓取每一個資源，全部成功才重組成 Data。
func (l *Loader) loadIndividual(ctx context.Context) (*Data, error) {
	if l.fetch == nil {
		return nil, loadFailed(errs.NewFatal("no fallback fetcher configured"), "")
	}
	paths := l.fallbackPaths()
	res := make([]schema.Resource, len(paths))
	for i, p := range paths {
		r, err := schema.ParseResourcePath(p)
		if err != nil {
			return nil, loadFailed(err, p)
		}
		res[i] = r
	}

	raws := make([]json.RawMessage, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			raw, err := l.fetch.Fetch(gctx, p)
			if err != nil {
				return loadFailed(err, p)
			}
			if !json.Valid(raw) {
				return loadFailed(bundle.ErrBadJSON, p)
			}
			raws[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Data{
		Config:   bundle.Section{},
		Entities: bundle.Section{},
		Quiz:     bundle.Section{},
		Maps:     bundle.Section{},
	}
	for i, r := range res {
		if err := d.Put(r.Category, r.Name, raws[i]); err != nil {
			return nil, loadFailed(err, paths[i])
		}
	}
	d.SetManifest()
	return d, nil
}

func loadFailed(cause error, path string) error {
	e := ErrLoadFailed.WithPath(path)
	e.Cause = cause
	return e
}

// QuizData 回傳指定題庫的題目；category 為空字串時使用預設題庫。
// 尚未載入或題庫不存在時回傳空切片。
func (l *Loader) QuizData(category string) []json.RawMessage {
	if category == "" {
		category = l.sch.DefaultAsset(schema.Quiz)
	}
	return l.list(schema.Quiz, category)
}

// Monsters 回傳怪物清單。
func (l *Loader) Monsters() []json.RawMessage {
	return l.list(schema.Entities, "monsters")
}

// GymLeaders 回傳道館館主清單。
func (l *Loader) GymLeaders() []json.RawMessage {
	return l.list(schema.Entities, "gymLeaders")
}

// GameConfig 回傳 config/game 的欄位；不存在或不是 object 時回傳空 map。
func (l *Loader) GameConfig() map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	raw, ok := l.raw(schema.Config, "game")
	if !ok {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]json.RawMessage{}
	}
	return out
}

func (l *Loader) raw(c schema.Category, name string) (json.RawMessage, bool) {
	d := l.Data()
	if d == nil {
		return nil, false
	}
	return d.Get(c, name)
}

func (l *Loader) list(c schema.Category, name string) []json.RawMessage {
	out := []json.RawMessage{}
	raw, ok := l.raw(c, name)
	if !ok {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []json.RawMessage{}
	}
	return out
}

// Decode 把某個資產解成呼叫端的型別。尚未載入時回傳 ErrNotLoaded。
func Decode[T any](l *Loader, c schema.Category, name string) (T, error) {
	var v T
	if l.Data() == nil {
		return v, ErrNotLoaded
	}
	raw, ok := l.raw(c, name)
	if !ok {
		return v, ErrNoAsset.WithPath(schema.ResourcePath(c, name))
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errs.WrapPath(err, "decode asset failed", schema.ResourcePath(c, name))
	}
	return v, nil
}

var (
	ErrNotLoaded = errs.NewWarn("game data not loaded")
	ErrNoAsset   = errs.NewWarn("asset not found")
)
