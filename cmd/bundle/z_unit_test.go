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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for p, body := range files {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRunWritesArtifacts(t *testing.T) {
	t.Chdir(t.TempDir())
	data := writeTree(t, map[string]string{
		"config/game.json":       `{"title":"노들섬"}`,
		"quiz/cp.json":           `[{"q":1},{"q":2}]`,
		"entities/monsters.json": `[{"id":"a"}]`,
	})
	out := filepath.Join(t.TempDir(), "gen")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-out", out, "-quiet", "-log-mode", "silence"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	for _, name := range []string{"bundled_data.go", "data_loader.go", "bundled-data.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if stdout.Len() != 0 {
		t.Fatalf("quiet mode should not print: %s", stdout.String())
	}
}

func TestRunDryRunPrintsStats(t *testing.T) {
	t.Chdir(t.TempDir())
	data := writeTree(t, map[string]string{"quiz/cp.json": `[1,2,3]`})
	out := filepath.Join(t.TempDir(), "gen")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-out", out, "-dry-run", "-log-mode", "silence", "-json=false"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("dry run must not create the output dir")
	}
	s := stdout.String()
	if !strings.Contains(s, "would write bundled_data.go") || strings.Contains(s, "bundled-data.json") {
		t.Fatalf("unexpected dry run output:\n%s", s)
	}
	if !strings.Contains(s, "Total Questions") {
		t.Fatalf("expected stats table:\n%s", s)
	}
}

func TestRunParseErrorExitsNonZero(t *testing.T) {
	t.Chdir(t.TempDir())
	data := writeTree(t, map[string]string{"quiz/sap.json": `[{"q":`})
	out := filepath.Join(t.TempDir(), "gen")
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-data", data, "-out", out, "-quiet"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "quiz/sap.json") {
		t.Fatalf("error should name the file: %s", stderr.String())
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("failed build must not write output")
	}
}

func TestRunStrictMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	data := writeTree(t, map[string]string{"quiz/cp.json": `[]`})
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-out", t.TempDir(), "-strict", "-quiet"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("strict build with missing assets should fail, got %d", code)
	}
}

func TestRunBadFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-log-mode", "loud"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run(context.Background(), []string{"extra"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if code := run(context.Background(), []string{"-pprof", "block"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRunWithProfile(t *testing.T) {
	work := t.TempDir()
	t.Chdir(work)
	data := writeTree(t, map[string]string{"maps/tiles.json": `{"tiles":{}}`})
	var stdout, stderr bytes.Buffer
	args := []string{"-data", data, "-out", filepath.Join(work, "gen"), "-quiet", "-pprof", "heap"}
	if code := run(context.Background(), args, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(work, "build", "profiling", "heap.pprof")); err != nil {
		t.Fatalf("expected heap profile: %v", err)
	}
}
