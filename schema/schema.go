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

// Package schema 宣告資料目錄的結構：四個固定分類，以及每個分類「預期存在」的資產名稱。
//
// 資產名稱來自檔名（去掉副檔名），這是資料目錄與前端程式之間的隱性合約。
// 這裡把它寫成明確的清單，缺檔時才能被偵測，而不是在執行期默默拿到空資料。
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/zintix-labs/gamepack/errs"
	"gopkg.in/yaml.v3"
)

// Category 是資料的頂層分類。
type Category string

const (
	Config   Category = "config"
	Entities Category = "entities"
	Quiz     Category = "quiz"
	Maps     Category = "maps"
)

// Categories 回傳固定順序的四個分類；bundle 輸出與統計都依此順序。
func Categories() []Category {
	return []Category{Config, Entities, Quiz, Maps}
}

// Valid 檢查是否為四個已知分類之一。
func (c Category) Valid() bool {
	switch c {
	case Config, Entities, Quiz, Maps:
		return true
	default:
		return false
	}
}

// DefaultQuizCategory 是 loader 取題目時的預設題庫。
const DefaultQuizCategory = "cp"

// Resource 是一個可以單獨抓取的資料檔。
type Resource struct {
	Category Category
	Name     string
}

// Path 回傳資源在靜態伺服器上的 URL 路徑，例如 /data/quiz/cp.json。
func (r Resource) Path() string {
	return ResourcePath(r.Category, r.Name)
}

func ResourcePath(c Category, name string) string {
	return "/data/" + string(c) + "/" + name + ".json"
}

// ParseResourcePath 是 ResourcePath 的反向操作，用於把 manifest 還原成 (分類, 名稱)。
func ParseResourcePath(p string) (Resource, error) {
	rest, ok := strings.CutPrefix(p, "/data/")
	if !ok {
		return Resource{}, errs.Warnf("resource path must start with /data/: %q", p)
	}
	cat, file, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(file, "/") {
		return Resource{}, errs.Warnf("resource path must be /data/<category>/<file>.json: %q", p)
	}
	name, ok := strings.CutSuffix(file, ".json")
	if !ok || name == "" {
		return Resource{}, errs.Warnf("resource path must end with .json: %q", p)
	}
	c := Category(cat)
	if !c.Valid() {
		return Resource{}, errs.Warnf("unknown category in resource path: %q", p)
	}
	return Resource{Category: c, Name: name}, nil
}

type categorySpec struct {
	Name    Category `yaml:"name"`
	Default string   `yaml:"default,omitempty"`
	Assets  []string `yaml:"assets"`
}

// Schema 是每個分類預期的資產清單。
type Schema struct {
	Categories []categorySpec `yaml:"categories"`
}

//go:embed default.yaml
var defaultYAML []byte

// Default 回傳內建的 schema（config/game, entities/monsters ... maps/tiles 共 11 個檔案）。
func Default() *Schema {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(err)
	}
	return s
}

// Parse 解析 YAML 並做基本檢查。
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall schema yaml")
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load 從檔案讀取 schema。
func Load(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapPath(err, "read schema failed", path)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, errs.WrapPath(err, "parse schema failed", path)
	}
	return s, nil
}

func (s *Schema) validate() error {
	seenCat := map[Category]struct{}{}
	for _, cs := range s.Categories {
		if !cs.Name.Valid() {
			return errs.NewFatal(fmt.Sprintf("unknown category: %q", cs.Name))
		}
		if _, ok := seenCat[cs.Name]; ok {
			return errs.NewFatal(fmt.Sprintf("duplicate category: %q", cs.Name))
		}
		seenCat[cs.Name] = struct{}{}

		seen := map[string]struct{}{}
		for _, a := range cs.Assets {
			if strings.TrimSpace(a) == "" || strings.ContainsAny(a, `/\`) {
				return errs.NewFatal(fmt.Sprintf("invalid asset name %q in category %q", a, cs.Name))
			}
			key := strings.ToLower(a)
			if _, ok := seen[key]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate asset %q in category %q", a, cs.Name))
			}
			seen[key] = struct{}{}
		}
		if cs.Default != "" {
			if _, ok := seen[strings.ToLower(cs.Default)]; !ok {
				return errs.NewFatal(fmt.Sprintf("default %q is not an asset of category %q", cs.Default, cs.Name))
			}
		}
	}
	return nil
}

// Expected 回傳某分類預期的資產名稱（依宣告順序）。
func (s *Schema) Expected(c Category) []string {
	for _, cs := range s.Categories {
		if cs.Name == c {
			return append([]string(nil), cs.Assets...)
		}
	}
	return nil
}

// DefaultAsset 回傳某分類宣告的預設資產；未宣告時，quiz 分類回傳 DefaultQuizCategory。
func (s *Schema) DefaultAsset(c Category) string {
	for _, cs := range s.Categories {
		if cs.Name == c && cs.Default != "" {
			return cs.Default
		}
	}
	if c == Quiz {
		return DefaultQuizCategory
	}
	return ""
}

// Resources 依分類固定順序、分類內宣告順序列出所有預期資源。
func (s *Schema) Resources() []Resource {
	out := make([]Resource, 0, 16)
	for _, c := range Categories() {
		for _, name := range s.Expected(c) {
			out = append(out, Resource{Category: c, Name: name})
		}
	}
	return out
}

// Missing 比對實際掃描到的資產，回傳缺少的預期資源。found 的 key 為分類，value 為資產名稱集合。
func (s *Schema) Missing(found map[Category]map[string]struct{}) []Resource {
	var out []Resource
	for _, r := range s.Resources() {
		if _, ok := found[r.Category][r.Name]; !ok {
			out = append(out, r)
		}
	}
	return out
}
