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

package loader_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/zintix-labs/gamepack/bundle"
	"github.com/zintix-labs/gamepack/loader"
	"github.com/zintix-labs/gamepack/schema"
)

// files 是 11 個預期資源的最小內容。
func files() map[string]string {
	return map[string]string{
		"/data/config/game.json":         `{"title":"노들섬 RPG","startMap":"nodeul-island"}`,
		"/data/config/ui.json":           `{"theme":"dark"}`,
		"/data/entities/monsters.json":   `[{"id":1,"name":"버그몬"},{"id":2,"name":"레이스몬"}]`,
		"/data/entities/gymLeaders.json": `[{"id":"cp","name":"관장"}]`,
		"/data/entities/npcs.json":       `[]`,
		"/data/quiz/cp.json":             `[{"q":"1"},{"q":"2"},{"q":"3"}]`,
		"/data/quiz/saa.json":            `[{"q":"a"}]`,
		"/data/quiz/dva.json":            `[{"q":"b"}]`,
		"/data/quiz/sap.json":            `[{"q":"c"}]`,
		"/data/maps/nodeul-island.json":  `{"width":20,"height":15}`,
		"/data/maps/tiles.json":          `{"grass":0}`,
	}
}

func mapFS() fstest.MapFS {
	m := fstest.MapFS{}
	for p, body := range files() {
		m[p[1:]] = &fstest.MapFile{Data: []byte(body)}
	}
	return m
}

func bundleJSON(t *testing.T) string {
	t.Helper()
	b := bundle.New(time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC))
	for p, body := range files() {
		r, err := schema.ParseResourcePath(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := b.Put(r.Category, r.Name, json.RawMessage(body)); err != nil {
			t.Fatal(err)
		}
	}
	b.SetManifest()
	raw, err := b.Marshal(false)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestLoadFromEmbeddedBundle(t *testing.T) {
	l := loader.New(loader.WithSource(loader.Embedded(bundleJSON(t))))
	if l.State() != loader.StateEmpty {
		t.Fatalf("expected empty state, got %s", l.State())
	}
	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Count() != 11 {
		t.Fatalf("expected 11 assets, got %d", d.Count())
	}
	if l.State() != loader.StateReady {
		t.Fatalf("expected ready state, got %s", l.State())
	}
	if n := len(l.QuizData("")); n != 3 {
		t.Fatalf("default quiz should be cp with 3 questions, got %d", n)
	}
	if n := len(l.QuizData("saa")); n != 1 {
		t.Fatalf("expected 1 saa question, got %d", n)
	}
	if n := len(l.QuizData("nope")); n != 0 {
		t.Fatalf("unknown quiz should be empty, got %d", n)
	}
	if n := len(l.Monsters()); n != 2 {
		t.Fatalf("expected 2 monsters, got %d", n)
	}
	if n := len(l.GymLeaders()); n != 1 {
		t.Fatalf("expected 1 gym leader, got %d", n)
	}
	var title string
	if err := json.Unmarshal(l.GameConfig()["title"], &title); err != nil || title != "노들섬 RPG" {
		t.Fatalf("unexpected game title %q (%v)", title, err)
	}
}

func TestAccessorsBeforeLoad(t *testing.T) {
	l := loader.New()
	if l.Data() != nil {
		t.Fatal("data must be nil before load")
	}
	if q := l.QuizData(""); q == nil || len(q) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", q)
	}
	if c := l.GameConfig(); c == nil || len(c) != 0 {
		t.Fatalf("expected empty non-nil map, got %#v", c)
	}
	if _, err := loader.Decode[map[string]any](l, schema.Config, "game"); !errors.Is(err, loader.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestConcurrentLoadReadsOnce(t *testing.T) {
	data := bundleJSON(t)
	var reads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	src := loader.SourceFunc(func(context.Context) ([]byte, error) {
		if reads.Add(1) == 1 {
			close(started)
		}
		<-release
		return []byte(data), nil
	})
	l := loader.New(loader.WithSource(src))

	results := make([]*loader.Data, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = l.Load(context.Background())
	}()
	<-started
	if l.State() != loader.StateLoading {
		t.Fatalf("expected loading state, got %s", l.State())
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = l.Load(context.Background())
	}()
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if reads.Load() != 1 {
		t.Fatalf("expected exactly one bundle read, got %d", reads.Load())
	}
	if results[0] != results[1] {
		t.Fatal("both callers must receive the same data")
	}
}

func TestFallbackReassemblesFromIndividualFiles(t *testing.T) {
	l := loader.New(
		loader.WithSource(loader.Embedded("")),
		loader.WithFallback(loader.FSFetcher(mapFS())),
	)
	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Count() != 11 {
		t.Fatalf("expected 11 assets, got %d", d.Count())
	}
	if n := len(l.QuizData("cp")); n != 3 {
		t.Fatalf("expected 3 cp questions, got %d", n)
	}
	if len(d.Manifest) != 11 {
		t.Fatalf("expected manifest of 11, got %d", len(d.Manifest))
	}
}

func TestFallbackOnCorruptBundle(t *testing.T) {
	l := loader.New(
		loader.WithSource(loader.Embedded(`{"config":[]}`)),
		loader.WithFallback(loader.FSFetcher(mapFS())),
	)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("corrupt bundle should fall back, got %v", err)
	}
}

func TestOneFailedFetchFailsWholeLoad(t *testing.T) {
	body := files()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/data/quiz/sap.json" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		b, ok := body[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b))
	}))
	defer srv.Close()

	l := loader.New(loader.WithFallback(loader.NewHTTPFetcher(srv.URL, srv.Client())))
	_, err := l.Load(context.Background())
	if !errors.Is(err, loader.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
	if l.State() != loader.StateEmpty {
		t.Fatalf("failed load must reset to empty, got %s", l.State())
	}
	if l.Data() != nil {
		t.Fatal("no partial data may be exposed")
	}
	if hits.Load() == 0 {
		t.Fatal("expected fetches to reach the server")
	}
}

func TestRetryAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	fs := mapFS()
	f := loader.FetcherFunc(func(ctx context.Context, path string) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("offline")
		}
		return loader.FSFetcher(fs).Fetch(ctx, path)
	})
	l := loader.New(loader.WithFallback(f))
	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	fail.Store(false)
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if l.State() != loader.StateReady {
		t.Fatalf("expected ready, got %s", l.State())
	}
}

func TestLoadFromFileAndDecode(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bundled-data.json")
	if err := os.WriteFile(p, []byte(bundleJSON(t)), 0o644); err != nil {
		t.Fatal(err)
	}
	l := loader.New(loader.WithSource(loader.File(p)))
	if _, err := l.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	type monster struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	ms, err := loader.Decode[[]monster](l, schema.Entities, "monsters")
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 || ms[0].Name != "버그몬" {
		t.Fatalf("unexpected monsters %+v", ms)
	}
	if _, err := loader.Decode[[]monster](l, schema.Entities, "dragons"); !errors.Is(err, loader.ErrNoAsset) {
		t.Fatalf("expected ErrNoAsset, got %v", err)
	}
}

func TestLoadHonoursCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	src := loader.SourceFunc(func(context.Context) ([]byte, error) {
		<-release
		return nil, errors.New("never")
	})
	l := loader.New(loader.WithSource(src))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemoteSource(t *testing.T) {
	data := bundleJSON(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/__launcher/bundle" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(data))
	}))
	defer srv.Close()

	f := loader.NewHTTPFetcher(srv.URL+"/", srv.Client())
	l := loader.New(loader.WithSource(loader.Remote(f, "/__launcher/bundle")))
	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Count() != 11 {
		t.Fatalf("expected 11 assets, got %d", d.Count())
	}
}
