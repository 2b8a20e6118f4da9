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

// Package gamepack 把散落在資料目錄裡的 JSON 檔合併成單一 bundle，並產出可直接編譯進前端 / 服務的 Go 原始碼。
//
// 資料目錄的結構是固定的：
//
//	<data>/config/*.json
//	<data>/entities/*.json
//	<data>/quiz/*.json
//	<data>/maps/*.json
//
// 每個檔案的檔名（去掉副檔名）就是資產名稱，內容原樣放進 bundle 對應分類之下。
//
// 設計重點：
//   - Bundler 只依賴 fs.FS：可以是 os.DirFS，也可以是測試用的 fstest.MapFS 或 go:embed。
//   - 任何一個檔案解析失敗就整體失敗（fail-fast），錯誤會指出出錯的檔案，且不會留下任何輸出。
//   - 同一個 Bundler 在同一個時鐘下重複執行，輸出逐位元組相同。
//
// 典型使用：
//
//	b, _ := gamepack.NewFromDir("public/data", gamepack.WithProgress(os.Stderr))
//	res, _ := b.Build(ctx)
//	files, _ := res.Write(gamepack.Output{Dir: "internal/gamedata"})
package gamepack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/gamepack/bundle"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/schema"
	"github.com/zintix-labs/gamepack/server/logger"
	"github.com/zintix-labs/gamepack/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNoSource      = errs.NewFatal("data source required")
	ErrNotDir        = errs.NewFatal("data path is not a directory")
	ErrParse         = errs.NewFatal("failed to parse data file")
	ErrMissingAssets = errs.NewFatal("expected assets missing")
)

// Option 設定 Bundler。
type Option func(*Bundler)

// WithSchema 指定預期資產清單；預設為 schema.Default()。
func WithSchema(s *schema.Schema) Option {
	return func(b *Bundler) {
		if s != nil {
			b.sch = s
		}
	}
}

// WithClock 指定時間來源，version 與 timestamp 都取自它的單一次呼叫。
func WithClock(now func() time.Time) Option {
	return func(b *Bundler) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger 指定 logger；預設為靜默。
func WithLogger(log *slog.Logger) Option {
	return func(b *Bundler) {
		if log != nil {
			b.log = log
		}
	}
}

// WithProgress 在解析檔案時把進度條寫到 w；nil 代表不顯示。
func WithProgress(w io.Writer) Option {
	return func(b *Bundler) { b.progress = w }
}

// WithStrict 為 true 時，schema 預期但找不到的資產視為錯誤，而不是警告。
func WithStrict(strict bool) Option {
	return func(b *Bundler) { b.strict = strict }
}

// Bundler 掃描資料目錄並建出 Bundle。
type Bundler struct {
	src      fs.FS
	root     string
	absent   bool
	sch      *schema.Schema
	now      func() time.Time
	log      *slog.Logger
	progress io.Writer
	strict   bool
}

// New 以任意 fs.FS 作為資料根目錄建立 Bundler。
func New(src fs.FS, opts ...Option) (*Bundler, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	b := &Bundler{
		src: src,
		sch: schema.Default(),
		now: time.Now,
		log: logger.NewDefaultLogger(logger.ModeSilence),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewFromDir 以磁碟目錄建立 Bundler。
//
//   - 目錄不存在：視為空目錄，Build 會產出空的 bundle（並記錄警告）。
//   - 路徑存在但不是目錄，或無法讀取：直接回傳錯誤。
func NewFromDir(dir string, opts ...Option) (*Bundler, error) {
	var src fs.FS = emptyFS{}
	absent := false
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		absent = true
	case err != nil:
		return nil, errs.WrapPath(err, "stat data dir failed", dir)
	case !info.IsDir():
		return nil, ErrNotDir.WithPath(dir)
	default:
		if _, err := os.ReadDir(dir); err != nil {
			return nil, errs.WrapPath(err, "read data dir failed", dir)
		}
		src = os.DirFS(dir)
	}
	b, err := New(src, opts...)
	if err != nil {
		return nil, err
	}
	b.root = dir
	b.absent = absent
	return b, nil
}

// Result 是一次建置的結果。
type Result struct {
	Bundle  *bundle.Bundle
	Stats   bundle.Stats
	Missing []schema.Resource // schema 預期但沒找到的資產
	Extra   []schema.Resource // 找到但 schema 未宣告的資產
	Files   []string          // 實際讀取的來源檔（依讀取順序）
}

type sourceFile struct {
	cat  schema.Category
	name string
	path string // fs.FS 內的路徑
}

// Build 掃描四個分類、解析每一個 JSON 檔並組成 Bundle。
// 任何錯誤都會中止建置；回傳錯誤時 Result 為 nil。
func (b *Bundler) Build(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.Tracer("bundler").Start(ctx, "bundler.build")
	defer span.End()

	res, err := b.build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("bundle.assets", res.Bundle.Count()),
		attribute.Int("bundle.questions", res.Stats.TotalQuestions),
		attribute.Int64("bundle.version", res.Bundle.Version),
	)
	return res, nil
}

func (b *Bundler) build(ctx context.Context) (*Result, error) {
	if b.absent {
		b.log.Warn("data directory not found, producing empty bundle", slog.String("dir", b.root))
	}
	files, err := b.scan()
	if err != nil {
		return nil, err
	}

	out := bundle.New(b.now())
	var bar *pb.ProgressBar
	if b.progress != nil && len(files) > 0 {
		bar = pb.New(len(files)).SetWriter(b.progress).Start()
		defer bar.Finish()
	}

	res := &Result{Bundle: out, Files: make([]string, 0, len(files))}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.parse(out, f); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, f.path)
		b.log.Debug("asset bundled", slog.String("category", string(f.cat)), slog.String("name", f.name))
		if bar != nil {
			bar.Increment()
		}
	}

	found := map[schema.Category]map[string]struct{}{}
	for _, f := range files {
		if found[f.cat] == nil {
			found[f.cat] = map[string]struct{}{}
		}
		found[f.cat][f.name] = struct{}{}
	}
	res.Missing = b.sch.Missing(found)
	res.Extra = b.extra(files)
	if err := b.reportMissing(res.Missing); err != nil {
		return nil, err
	}
	for _, r := range res.Extra {
		b.log.Info("asset not declared in schema", slog.String("path", r.Path()))
	}

	out.SetManifest()
	res.Stats = out.Stats()
	return res, nil
}

// scan 依分類固定順序列出候選檔案；分類內依檔名排序（fs.ReadDir 的保證）。
// 隱藏檔、子目錄與非 .json 檔一律略過；副檔名不分大小寫。
func (b *Bundler) scan() ([]sourceFile, error) {
	var files []sourceFile
	for _, c := range schema.Categories() {
		entries, err := fs.ReadDir(b.src, string(c))
		if errors.Is(err, fs.ErrNotExist) {
			b.log.Debug("category directory not found", slog.String("category", string(c)))
			continue
		}
		if err != nil {
			return nil, errs.WrapPath(err, "read category dir failed", b.display(string(c)))
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") {
				continue
			}
			ext := path.Ext(name)
			if !strings.EqualFold(ext, ".json") {
				continue
			}
			files = append(files, sourceFile{
				cat:  c,
				name: name[:len(name)-len(ext)],
				path: path.Join(string(c), name),
			})
		}
	}
	return files, nil
}

func (b *Bundler) parse(out *bundle.Bundle, f sourceFile) error {
	raw, err := fs.ReadFile(b.src, f.path)
	if err != nil {
		return errs.WrapPath(err, "read data file failed", b.display(f.path))
	}
	// Unmarshal 進 RawMessage 只做語法檢查，並帶出錯誤位置
	var v json.RawMessage
	if err := json.Unmarshal(raw, &v); err != nil {
		e := ErrParse.WithPath(b.display(f.path))
		e.Cause = err
		return e
	}
	if err := out.Put(f.cat, f.name, raw); err != nil {
		return errs.WrapPath(err, "cannot add asset", b.display(f.path))
	}
	return nil
}

func (b *Bundler) reportMissing(missing []schema.Resource) error {
	if len(missing) == 0 {
		return nil
	}
	paths := make([]string, 0, len(missing))
	for _, r := range missing {
		paths = append(paths, r.Path())
	}
	if b.strict {
		return ErrMissingAssets.WithPath(strings.Join(paths, ", "))
	}
	for _, p := range paths {
		b.log.Warn("expected asset missing", slog.String("path", p))
	}
	return nil
}

func (b *Bundler) extra(files []sourceFile) []schema.Resource {
	var out []schema.Resource
	for _, f := range files {
		declared := false
		for _, name := range b.sch.Expected(f.cat) {
			if name == f.name {
				declared = true
				break
			}
		}
		if !declared {
			out = append(out, schema.Resource{Category: f.cat, Name: f.name})
		}
	}
	return out
}

func (b *Bundler) display(p string) string {
	if b.root == "" {
		return p
	}
	return filepath.Join(b.root, filepath.FromSlash(p))
}

// emptyFS 代表不存在的資料目錄：任何開啟都回傳 fs.ErrNotExist。
type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
