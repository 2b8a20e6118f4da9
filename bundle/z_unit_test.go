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

package bundle_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zintix-labs/gamepack/bundle"
	"github.com/zintix-labs/gamepack/schema"
)

func items(n int) json.RawMessage {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = `{"q":"문제"}`
	}
	return json.RawMessage("[" + strings.Join(parts, ",") + "]")
}

func TestStatsTotalQuestions(t *testing.T) {
	b := bundle.New(time.Unix(0, 0))
	if err := b.Put(schema.Quiz, "cp", items(5)); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(schema.Quiz, "saa", items(3)); err != nil {
		t.Fatal(err)
	}
	st := b.Stats()
	if st.TotalQuestions != 8 {
		t.Fatalf("expected 8 questions, got %d", st.TotalQuestions)
	}
	if st.QuizCategories != 2 {
		t.Fatalf("expected 2 quiz categories, got %d", st.QuizCategories)
	}
}

func TestStatsMissingGymLeaders(t *testing.T) {
	b := bundle.New(time.Unix(0, 0))
	if err := b.Put(schema.Entities, "monsters", items(4)); err != nil {
		t.Fatal(err)
	}
	st := b.Stats()
	if st.TotalGymLeaders != 0 {
		t.Fatalf("expected 0 gym leaders, got %d", st.TotalGymLeaders)
	}
	if st.TotalMonsters != 4 {
		t.Fatalf("expected 4 monsters, got %d", st.TotalMonsters)
	}
}

func TestListLenNonArray(t *testing.T) {
	for _, raw := range []string{`{"a":1}`, `"abc"`, `null`, `3`, ``} {
		if n := bundle.ListLen(json.RawMessage(raw)); n != 0 {
			t.Fatalf("ListLen(%s) = %d, want 0", raw, n)
		}
	}
	if n := bundle.ListLen(json.RawMessage(`[1,[2,3],{"x":[4]}]`)); n != 3 {
		t.Fatalf("nested arrays must count top level only, got %d", n)
	}
}

func TestPutRejectsCaseCollision(t *testing.T) {
	b := bundle.New(time.Unix(0, 0))
	if err := b.Put(schema.Config, "Game", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	err := b.Put(schema.Config, "game", json.RawMessage(`{}`))
	if !errors.Is(err, bundle.ErrDupAsset) {
		t.Fatalf("expected ErrDupAsset, got %v", err)
	}
	if !strings.Contains(err.Error(), "/data/config/game.json") {
		t.Fatalf("error should name the resource: %v", err)
	}
	if err := b.Put(schema.Category("sounds"), "x", json.RawMessage(`{}`)); !errors.Is(err, bundle.ErrCategory) {
		t.Fatalf("expected ErrCategory, got %v", err)
	}
	if err := b.Put(schema.Maps, "x", json.RawMessage(`{`)); !errors.Is(err, bundle.ErrBadJSON) {
		t.Fatalf("expected ErrBadJSON, got %v", err)
	}
}

func TestEncodePreservesJSON(t *testing.T) {
	at := time.Date(2025, 9, 6, 13, 35, 47, 899_000_000, time.UTC)
	b := bundle.New(at)
	raw := json.RawMessage(`{"title":"노들섬 <퀴즈> & RPG","big":12345678901234567890,"ok":true,"none":null,"f":1.50}`)
	if err := b.Put(schema.Config, "game", raw); err != nil {
		t.Fatal(err)
	}
	out, err := b.Marshal(false)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{
		`"노들섬 <퀴즈> & RPG"`,
		`12345678901234567890`,
		`"ok":true`,
		`"none":null`,
		`1.50`,
		`"version":1757165747899`,
		`"timestamp":"2025-09-06T13:35:47.899Z"`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("encoded bundle missing %s:\n%s", want, s)
		}
	}
	if strings.Index(s, `"config"`) > strings.Index(s, `"maps"`) {
		t.Fatalf("categories must keep declaration order: %s", s)
	}
}

func TestDecodeRoundTripAndValidation(t *testing.T) {
	b := bundle.New(time.Unix(1, 0))
	_ = b.Put(schema.Maps, "tiles", json.RawMessage(`{"tiles":{}}`))
	b.SetManifest()
	var buf bytes.Buffer
	if err := b.Encode(&buf, true); err != nil {
		t.Fatal(err)
	}
	got, err := bundle.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if got.Count() != 1 || len(got.Manifest) != 1 || got.Manifest[0] != "/data/maps/tiles.json" {
		t.Fatalf("unexpected decoded bundle: %+v", got)
	}

	bad := []string{
		`not json`,
		`[]`,
		`{"config":{},"entities":{},"quiz":{},"version":1,"timestamp":"t"}`,
		`{"config":{},"entities":[],"quiz":{},"maps":{},"version":1,"timestamp":"t"}`,
		`{"config":{},"entities":{},"quiz":{},"maps":{},"version":"1","timestamp":"t"}`,
	}
	for _, src := range bad {
		if _, err := bundle.Decode([]byte(src)); !errors.Is(err, bundle.ErrInvalid) {
			t.Fatalf("Decode(%s): expected ErrInvalid, got %v", src, err)
		}
	}
}

func TestStatsTable(t *testing.T) {
	var buf bytes.Buffer
	bundle.Stats{TotalQuestions: 12345}.StdOut(&buf, "번들 통계")
	out := buf.String()
	if !strings.Contains(out, "12,345") {
		t.Fatalf("expected thousands separator:\n%s", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 11 {
		t.Fatalf("expected 11 table lines, got %d:\n%s", len(lines), out)
	}
}
