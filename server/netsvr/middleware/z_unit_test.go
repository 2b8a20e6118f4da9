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

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var payload = strings.Repeat(`{"q":"노들섬 퀴즈"}`, 200)

func textHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, payload)
}

func TestCompressionGzip(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	req := httptest.NewRequest(http.MethodGet, "/data/quiz/cp.json", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, got %q", rec.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Fatal("gzip round trip mismatch")
	}
}

func TestCompressionZstdPreferred(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "zstd" {
		t.Fatalf("expected zstd, got %q", rec.Header().Get("Content-Encoding"))
	}
	zr, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != payload {
		t.Fatal("zstd round trip mismatch")
	}
}

func TestCompressionSkips(t *testing.T) {
	h := Compression(http.HandlerFunc(textHandler))
	for name, mod := range map[string]func(*http.Request){
		"image": func(r *http.Request) { r.URL.Path = "/assets/tiles.PNG" },
		"range": func(r *http.Request) { r.Header.Set("Range", "bytes=0-10") },
		"head":  func(r *http.Request) { r.Method = http.MethodHead },
	} {
		req := httptest.NewRequest(http.MethodGet, "/data/x.json", nil)
		req.Header.Set("Accept-Encoding", "gzip, zstd")
		mod(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if enc := rec.Header().Get("Content-Encoding"); enc != "" {
			t.Fatalf("%s: expected no compression, got %q", name, enc)
		}
	}
}

func TestCompressionNoBodyStatus(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Encoding") != "" {
		t.Fatalf("304 must carry no body and no encoding: %d bytes, %q", rec.Body.Len(), rec.Header().Get("Content-Encoding"))
	}
}

func TestNoCache(t *testing.T) {
	var sawCond bool
	h := NoCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawCond = r.Header.Get("If-Modified-Since") != "" || r.Header.Get("If-None-Match") != ""
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", `"abc"`)
	req.Header.Set("If-Modified-Since", "Mon, 01 Jan 2024 00:00:00 GMT")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	want := map[string]string{
		"Cache-Control": "no-cache, no-store, must-revalidate",
		"Pragma":        "no-cache",
		"Expires":       "0",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if sawCond {
		t.Fatal("conditional headers must be stripped")
	}
}

func TestAccessLogAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.json", nil))

	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "msg=http.access", "status=404", "path=/missing.json", "req_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("access log missing %q: %s", want, out)
		}
	}
}

func TestRecoverLogsPanic(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}
