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

package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

const (
	monstersKey   = "monsters"
	gymLeadersKey = "gymLeaders"
)

// Stats 是建置摘要。
type Stats struct {
	ConfigFiles     int `json:"configFiles"`
	EntityTypes     int `json:"entityTypes"`
	QuizCategories  int `json:"quizCategories"`
	MapFiles        int `json:"mapFiles"`
	TotalQuestions  int `json:"totalQuestions"`
	TotalMonsters   int `json:"totalMonsters"`
	TotalGymLeaders int `json:"totalGymLeaders"`
}

// Stats 計算摘要。題目數為每個 quiz 資產的陣列長度總和；
// monsters / gymLeaders 不存在或不是陣列時記為 0。
func (b *Bundle) Stats() Stats {
	st := Stats{
		ConfigFiles:    len(b.Config),
		EntityTypes:    len(b.Entities),
		QuizCategories: len(b.Quiz),
		MapFiles:       len(b.Maps),
	}
	for _, raw := range b.Quiz {
		st.TotalQuestions += ListLen(raw)
	}
	st.TotalMonsters = ListLen(b.Entities[monstersKey])
	st.TotalGymLeaders = ListLen(b.Entities[gymLeadersKey])
	return st
}

// ListLen 回傳 JSON 陣列的長度；其他型別（含空值）回傳 0。
func ListLen(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	r := gjson.ParseBytes(raw)
	if !r.IsArray() {
		return 0
	}
	n := 0
	r.ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})
	return n
}

// StdOut 以表格形式輸出摘要。
func (s Stats) StdOut(w io.Writer, title string) {
	keys, msg := s.fmtBasic()
	fmt.Fprint(w, fmtTable(title, keys, msg))
}

func (s Stats) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Config Files":      p.Sprintf("%d", s.ConfigFiles),
		"Entity Types":      p.Sprintf("%d", s.EntityTypes),
		"Quiz Categories":   p.Sprintf("%d", s.QuizCategories),
		"Map Files":         p.Sprintf("%d", s.MapFiles),
		"Total Questions":   p.Sprintf("%d", s.TotalQuestions),
		"Total Monsters":    p.Sprintf("%d", s.TotalMonsters),
		"Total Gym Leaders": p.Sprintf("%d", s.TotalGymLeaders),
	}
	keys := []string{"Config Files", "Entity Types", "Quiz Categories", "Map Files", "Total Questions", "Total Monsters", "Total Gym Leaders"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		maxValLen += titleW - totalInner
		totalInner = titleW
	}

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", totalInner) + "+\n"

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString("|" + blank(left) + title + blank(right) + "|\n")
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString("| " + k + blank(maxKeyLen-2-runewidth.StringWidth(k)) + " | " + msg[k] + blank(maxValLen-2-runewidth.StringWidth(msg[k])) + " |\n")
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}

func sortedKeys(sec Section) []string {
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
