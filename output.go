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

package gamepack

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zintix-labs/gamepack/codegen"
	"github.com/zintix-labs/gamepack/errs"
)

// Output 描述要寫出的產物。
type Output struct {
	Dir       string // 輸出目錄，不存在時自動建立
	Package   string // 產出 Go 檔的 package 名稱，預設 gamedata
	ConstName string // bundle 常數名稱，預設 GameData
	BaseURL   string // loader 逐檔回退時的來源
	JSON      bool   // 同時寫出 bundled-data.json
	Indent    bool   // 常數內 JSON 是否縮排（bundled-data.json 一律縮排）
}

func (o Output) codegen() codegen.Options {
	return codegen.Options{
		Package:   o.Package,
		ConstName: o.ConstName,
		BaseURL:   o.BaseURL,
		Indent:    o.Indent,
	}
}

type artifact struct {
	name string
	data []byte
}

// Render 產出所有檔案內容但不寫入磁碟，key 為檔名。
func (r *Result) Render(out Output) (map[string][]byte, error) {
	arts, err := r.render(out)
	if err != nil {
		return nil, err
	}
	m := make(map[string][]byte, len(arts))
	for _, a := range arts {
		m[a.name] = a.data
	}
	return m, nil
}

func (r *Result) render(out Output) ([]artifact, error) {
	opts := out.codegen()
	src, err := codegen.BundleSource(r.Bundle, opts)
	if err != nil {
		return nil, err
	}
	ld, err := codegen.LoaderSource(r.Bundle.Manifest, opts)
	if err != nil {
		return nil, err
	}
	arts := []artifact{
		{name: codegen.BundleFileName, data: src},
		{name: codegen.LoaderFileName, data: ld},
	}
	if out.JSON {
		raw, err := r.Bundle.Marshal(true)
		if err != nil {
			return nil, err
		}
		arts = append(arts, artifact{name: codegen.JSONFileName, data: append(raw, '\n')})
	}
	return arts, nil
}

// Write 寫出產物並回傳寫入的檔案路徑。
//
// 所有內容都先在記憶體中產生完畢才開始寫檔；每個檔案先寫到同目錄的暫存檔再 rename，
// 因此讀取端不會看到寫到一半的檔案。
func (r *Result) Write(out Output) ([]string, error) {
	if out.Dir == "" {
		return nil, errs.NewFatal("output dir required")
	}
	arts, err := r.render(out)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, errs.WrapPath(err, "create output dir failed", out.Dir)
	}
	written := make([]string, 0, len(arts))
	for _, a := range arts {
		p := filepath.Join(out.Dir, a.name)
		if err := writeAtomic(p, a.data); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.WrapPath(err, "create temp file failed", path)
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errs.WrapPath(err, "write failed", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errs.WrapPath(err, "sync failed", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errs.WrapPath(err, "close failed", path)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		cleanup()
		return errs.WrapPath(err, "chmod failed", path)
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return errs.WrapPath(err, "rename failed", path)
	}
	return nil
}

// Bundle 是一次完成「建置 + 寫檔」的便利入口。建置失敗時不寫出任何檔案。
func Bundle(ctx context.Context, dataDir string, out Output, opts ...Option) (*Result, []string, error) {
	b, err := NewFromDir(dataDir, opts...)
	if err != nil {
		return nil, nil, err
	}
	res, err := b.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	files, err := res.Write(out)
	if err != nil {
		return nil, nil, err
	}
	return res, files, nil
}
