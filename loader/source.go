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

package loader

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/zintix-labs/gamepack/errs"
)

// ErrNoBundle 表示沒有可用的 bundle（例如產出的常數為空字串）。
var ErrNoBundle = errs.NewWarn("bundle not available")

// Source 提供完整的 bundle JSON。
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// SourceFunc 讓一般函式實作 Source。
type SourceFunc func(ctx context.Context) ([]byte, error)

func (f SourceFunc) Read(ctx context.Context) ([]byte, error) { return f(ctx) }

// Embedded 以編譯期嵌入的字串作為 bundle 來源。
func Embedded(data string) Source {
	return SourceFunc(func(context.Context) ([]byte, error) {
		if strings.TrimSpace(data) == "" {
			return nil, ErrNoBundle
		}
		return []byte(data), nil
	})
}

// File 從磁碟讀取 bundled-data.json。
func File(path string) Source {
	return SourceFunc(func(context.Context) ([]byte, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.WrapPath(err, "read bundle failed", path)
		}
		return raw, nil
	})
}

// Remote 以 Fetcher 取得整份 bundle，例如開發時 launcher 的 /__launcher/bundle
// 或靜態伺服器上的 /bundled-data.json。
func Remote(f Fetcher, path string) Source {
	return SourceFunc(func(ctx context.Context) ([]byte, error) {
		return f.Fetch(ctx, path)
	})
}

// Fetcher 依資源路徑（/data/<category>/<name>.json）取得單一檔案。
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc 讓一般函式實作 Fetcher。
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) ([]byte, error) { return f(ctx, path) }

// FSFetcher 從 fs.FS 讀取資源，路徑去掉開頭的 "/"。
// 例如 os.DirFS("public") 搭配 /data/quiz/cp.json 會讀 public/data/quiz/cp.json。
func FSFetcher(fsys fs.FS) Fetcher {
	return FetcherFunc(func(_ context.Context, path string) ([]byte, error) {
		raw, err := fs.ReadFile(fsys, strings.TrimPrefix(path, "/"))
		if err != nil {
			return nil, errs.WrapPath(err, "read resource failed", path)
		}
		return raw, nil
	})
}

// HTTPFetcher 以 HTTP GET 從靜態伺服器抓取資源。
type HTTPFetcher struct {
	base   string
	client *http.Client
}

// NewHTTPFetcher 建立 HTTPFetcher；client 為 nil 時使用 10 秒 timeout 的預設 client。
func NewHTTPFetcher(baseURL string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+path, nil)
	if err != nil {
		return nil, errs.WrapPath(err, "build request failed", path)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errs.WrapPath(err, "fetch failed", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Fatalf("fetch failed: HTTP %d", resp.StatusCode).WithPath(path)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.WrapPath(err, "read response failed", path)
	}
	return raw, nil
}
