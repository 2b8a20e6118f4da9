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

// Package codegen 把 Bundle 轉成可直接編譯的 Go 原始碼。
//
// 產出兩個檔案：
//   - bundled_data.go：單一字串常數，內容為完整的 bundle JSON
//   - data_loader.go：以 loader.Loader 包裝該常數，並附上逐檔回退的資源清單
//
// 兩者都經過 go/format，因此產出穩定、可以直接提交到版本庫。
package codegen

import (
	"bytes"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/zintix-labs/gamepack/bundle"
	"github.com/zintix-labs/gamepack/errs"
)

const (
	DefaultPackage    = "gamedata"
	DefaultConstName  = "GameData"
	DefaultBaseURL    = "http://localhost:8000"
	DefaultLoaderPkg  = "github.com/zintix-labs/gamepack/loader"
	DefaultGenerator  = "gamepack bundle"
	BundleFileName    = "bundled_data.go"
	LoaderFileName    = "data_loader.go"
	JSONFileName      = "bundled-data.json"
	generatedNotePref = "// Code generated by "
)

var (
	ErrPackageName = errs.NewFatal("invalid package name")
	ErrConstName   = errs.NewFatal("invalid constant name")
)

// Options 控制產出的 Go 原始碼。零值欄位會套用預設值。
type Options struct {
	Package   string // 產出檔案的 package 名稱
	ConstName string // bundle 常數名稱
	BaseURL   string // 逐檔回退時抓取 /data/... 的來源
	LoaderPkg string // loader 套件的 import path
	Generator string // 寫進 "Code generated by" 註解的工具名稱
	Indent    bool   // 常數內的 JSON 是否縮排
}

func (o Options) withDefaults() (Options, error) {
	if o.Package == "" {
		o.Package = DefaultPackage
	}
	if o.ConstName == "" {
		o.ConstName = DefaultConstName
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.LoaderPkg == "" {
		o.LoaderPkg = DefaultLoaderPkg
	}
	if o.Generator == "" {
		o.Generator = DefaultGenerator
	}
	if !token.IsIdentifier(o.Package) || o.Package == "_" {
		return o, ErrPackageName.WithPath(o.Package)
	}
	if !token.IsIdentifier(o.ConstName) || !token.IsExported(o.ConstName) {
		return o, ErrConstName.WithPath(o.ConstName)
	}
	return o, nil
}

type bundleView struct {
	Options
	Literal   string
	Version   int64
	Timestamp string
	Count     int
}

type loaderView struct {
	Options
	Paths []string
}

// BundleSource 產生 bundled_data.go 的內容。
func BundleSource(b *bundle.Bundle, opts Options) ([]byte, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	raw, err := b.Marshal(opts.Indent)
	if err != nil {
		return nil, err
	}
	return render(bundleTmpl, bundleView{
		Options:   opts,
		Literal:   RawLiteral(string(raw)),
		Version:   b.Version,
		Timestamp: b.Timestamp,
		Count:     b.Count(),
	})
}

// LoaderSource 產生 data_loader.go 的內容。paths 為逐檔回退時要抓取的資源路徑，
// 通常就是 bundle.Manifest。
func LoaderSource(paths []string, opts Options) ([]byte, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return render(loaderTmpl, loaderView{Options: opts, Paths: paths})
}

// RawLiteral 把任意字串表示成 Go 字串字面值。
// 優先使用 raw string；內容含反引號時以 "` + \"`\" + `" 拼接。
// raw string 無法表示的內容（CR、BOM、非法 UTF-8）改用 strconv.Quote。
func RawLiteral(s string) string {
	if !rawSafe(s) {
		return strconv.Quote(s)
	}
	return "`" + strings.ReplaceAll(s, "`", "` + \"`\" + `") + "`"
}

// rawSafe 回報 s 能否原樣放進 raw string：CR 會被編譯器丟掉，BOM 在原始碼中是非法字元。
func rawSafe(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, '\r') && !strings.ContainsRune(s, '\uFEFF')
}

func render(t *template.Template, view any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return nil, errs.Wrap(err, "render "+t.Name()+" failed")
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errs.Wrap(err, "format "+t.Name()+" failed")
	}
	return out, nil
}
