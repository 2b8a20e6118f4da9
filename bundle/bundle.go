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

// Package bundle 定義合併後的遊戲資料（Bundle）與它的序列化格式。
//
// 每個資產的值以 json.RawMessage 原樣保存：數字、布林、null、非 ASCII 字串都不經過 Go 型別轉換，
// 因此輸出能完整保留原始 JSON 語意。
package bundle

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zintix-labs/gamepack/errs"
	"github.com/zintix-labs/gamepack/schema"
)

// TimestampLayout 是 ISO-8601（RFC 3339，毫秒，UTC）。
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	ErrDupAsset  = errs.NewFatal("duplicate asset name")
	ErrInvalid   = errs.NewWarn("invalid bundle")
	ErrBadJSON   = errs.NewFatal("invalid json")
	ErrCategory  = errs.NewFatal("unknown category")
	ErrEmptyName = errs.NewFatal("empty asset name")
)

// Section 是一個分類：資產名稱 → 原始 JSON。
type Section map[string]json.RawMessage

// Bundle 是四個分類的合併結果，加上一組「建置識別」（Version / Timestamp）。
//
// Manifest 列出建置時掃描到的所有資源路徑（/data/<category>/<name>.json），
// loader 在 bundle 不可用時依此清單逐一抓取，避免手動維護另一份清單。
type Bundle struct {
	Config    Section  `json:"config"`
	Entities  Section  `json:"entities"`
	Quiz      Section  `json:"quiz"`
	Maps      Section  `json:"maps"`
	Version   int64    `json:"version"`
	Timestamp string   `json:"timestamp"`
	Manifest  []string `json:"manifest,omitempty"`
}

// New 建立空的 Bundle，version 與 timestamp 取自同一個時間點。
func New(at time.Time) *Bundle {
	return &Bundle{
		Config:    Section{},
		Entities:  Section{},
		Quiz:      Section{},
		Maps:      Section{},
		Version:   at.UnixMilli(),
		Timestamp: at.UTC().Format(TimestampLayout),
	}
}

// Section 回傳指定分類；未知分類回傳 nil。
func (b *Bundle) Section(c schema.Category) Section {
	switch c {
	case schema.Config:
		return b.Config
	case schema.Entities:
		return b.Entities
	case schema.Quiz:
		return b.Quiz
	case schema.Maps:
		return b.Maps
	default:
		return nil
	}
}

// Put 寫入一個資產。名稱在同分類內以不分大小寫比對，重複即回傳 ErrDupAsset：
// 例如 Game.json 與 game.JSON 去掉副檔名後無法分辨，這裡不做任何覆寫。
func (b *Bundle) Put(c schema.Category, name string, raw json.RawMessage) error {
	sec := b.Section(c)
	if sec == nil {
		return ErrCategory.WithPath(string(c))
	}
	if name == "" {
		return ErrEmptyName.WithPath(string(c))
	}
	if !json.Valid(raw) {
		return ErrBadJSON.WithPath(schema.ResourcePath(c, name))
	}
	for existing := range sec {
		if strings.EqualFold(existing, name) {
			return ErrDupAsset.WithPath(schema.ResourcePath(c, name))
		}
	}
	sec[name] = raw
	return nil
}

// Get 取出一個資產的原始 JSON。
func (b *Bundle) Get(c schema.Category, name string) (json.RawMessage, bool) {
	sec := b.Section(c)
	if sec == nil {
		return nil, false
	}
	raw, ok := sec[name]
	return raw, ok
}

// Count 回傳四個分類的資產總數。
func (b *Bundle) Count() int {
	return len(b.Config) + len(b.Entities) + len(b.Quiz) + len(b.Maps)
}

// Encode 以穩定的順序寫出 JSON：分類依結構欄位順序，分類內依 key 排序。
// HTML 逸出關閉，非 ASCII 文字原樣輸出。
func (b *Bundle) Encode(w io.Writer, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(b); err != nil {
		return errs.Wrap(err, "encode bundle failed")
	}
	return nil
}

// Marshal 是 Encode 的便利版本，結尾不含換行。
func (b *Bundle) Marshal(indent bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Encode(&buf, indent); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode 解析 bundle JSON 並檢查結構：四個分類都必須存在且為 JSON object，
// version 必須是數字，timestamp 必須是字串。
func Decode(data []byte) (*Bundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalid
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalid
	}
	for _, c := range schema.Categories() {
		if !root.Get(string(c)).IsObject() {
			return nil, errs.Wrap(ErrInvalid, "category must be an object: "+string(c))
		}
	}
	if root.Get("version").Type != gjson.Number {
		return nil, errs.Wrap(ErrInvalid, "version must be a number")
	}
	if root.Get("timestamp").Type != gjson.String {
		return nil, errs.Wrap(ErrInvalid, "timestamp must be a string")
	}

	b := &Bundle{}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, errs.Wrap(err, "decode bundle failed")
	}
	return b, nil
}

// Resources 回傳 bundle 內實際存在的資源（依分類順序、名稱排序）。
func (b *Bundle) Resources() []schema.Resource {
	out := make([]schema.Resource, 0, b.Count())
	for _, c := range schema.Categories() {
		for _, name := range sortedKeys(b.Section(c)) {
			out = append(out, schema.Resource{Category: c, Name: name})
		}
	}
	return out
}

// SetManifest 依目前內容重建 Manifest。
func (b *Bundle) SetManifest() {
	res := b.Resources()
	b.Manifest = make([]string, 0, len(res))
	for _, r := range res {
		b.Manifest = append(b.Manifest, r.Path())
	}
}
