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

package codegen

import (
	"strconv"
	"text/template"
)

var funcs = template.FuncMap{
	"quote": strconv.Quote,
}

var bundleTmpl = template.Must(template.New(BundleFileName).Funcs(funcs).Parse(generatedNotePref + `{{.Generator}}; DO NOT EDIT.

package {{.Package}}

// BundleVersion 是建置時間（Unix 毫秒），可用來辨識資料版本。
const BundleVersion int64 = {{.Version}}

// BundleTimestamp 是建置時間的 ISO-8601 表示。
const BundleTimestamp = {{quote .Timestamp}}

// {{.ConstName}} 是合併後的遊戲資料（{{.Count}} 個資產）。
const {{.ConstName}} = {{.Literal}}
`))

var loaderTmpl = template.Must(template.New(LoaderFileName).Funcs(funcs).Parse(generatedNotePref + `{{.Generator}}; DO NOT EDIT.

package {{.Package}}

import (
	"context"
	"encoding/json"

	"{{.LoaderPkg}}"
)

// BaseURL 是逐檔回退時抓取資源的來源。
const BaseURL = {{quote .BaseURL}}

// FallbackPaths 是 bundle 無法使用時逐一抓取的資源。
var FallbackPaths = []string{
{{- range .Paths}}
	{{quote .}},
{{- end}}
}

// Default 是程序內共用的 Loader：先讀 {{.ConstName}}，失敗時改從 BaseURL 逐檔抓取。
var Default = loader.New(
	loader.WithSource(loader.Embedded({{.ConstName}})),
	loader.WithFallback(loader.NewHTTPFetcher(BaseURL, nil), FallbackPaths...),
)

// LoadGameData 載入遊戲資料；並行呼叫共用同一次載入，成功後直接回傳快取。
func LoadGameData(ctx context.Context) (*loader.Data, error) {
	return Default.Load(ctx)
}

// QuizData 回傳指定分類的題目；category 為空字串時使用預設分類。
func QuizData(category string) []json.RawMessage {
	return Default.QuizData(category)
}

// Monsters 回傳怪物清單。
func Monsters() []json.RawMessage {
	return Default.Monsters()
}

// GymLeaders 回傳道館館主清單。
func GymLeaders() []json.RawMessage {
	return Default.GymLeaders()
}

// GameConfig 回傳遊戲設定。
func GameConfig() map[string]json.RawMessage {
	return Default.GameConfig()
}
`))
