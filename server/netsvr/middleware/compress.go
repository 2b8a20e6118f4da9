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
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig 控制壓縮等級與略過的副檔名。
type CompressConfig struct {
	GzipLevel int
	ZstdLevel zstd.EncoderLevel
	// SkipExt 是已經壓縮過的格式（圖片、音訊、字型），再壓一次只浪費 CPU。
	SkipExt map[string]struct{}
}

var DefaultCompressConfig = CompressConfig{
	GzipLevel: gzip.DefaultCompression,
	ZstdLevel: zstd.SpeedFastest,
	SkipExt: exts(
		".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico",
		".mp3", ".ogg", ".wav", ".mp4", ".webm",
		".woff", ".woff2", ".zip", ".gz", ".zst",
	),
}

func exts(list ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, e := range list {
		m[e] = struct{}{}
	}
	return m
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade") ||
		r.Header.Get("Upgrade") != ""
}

// 204 No Content, 304 Not Modified, 1xx
func isNoBodyStatus(code int) bool {
	return (code >= 100 && code < 200) || code == http.StatusNoContent || code == http.StatusNotModified
}

type encoderPool struct {
	cfg  CompressConfig
	gzip sync.Pool
	zstd sync.Pool
}

func (p *encoderPool) getZstd(w io.Writer) *zstd.Encoder {
	if v := p.zstd.Get(); v != nil {
		zw := v.(*zstd.Encoder)
		zw.Reset(w)
		return zw
	}
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(p.cfg.ZstdLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic(err)
	}
	return zw
}

func (p *encoderPool) putZstd(zw *zstd.Encoder) {
	_ = zw.Close()
	p.zstd.Put(zw)
}

func (p *encoderPool) getGzip(w io.Writer) *gzip.Writer {
	if v := p.gzip.Get(); v != nil {
		gw := v.(*gzip.Writer)
		gw.Reset(w)
		return gw
	}
	gw, err := gzip.NewWriterLevel(w, p.cfg.GzipLevel)
	if err != nil {
		gw = gzip.NewWriter(w)
	}
	return gw
}

func (p *encoderPool) putGzip(gw *gzip.Writer) {
	_ = gw.Close()
	p.gzip.Put(gw)
}

type compressResponseWriter struct {
	http.ResponseWriter
	w        io.Writer // gzip.Writer 或 zstd.Encoder
	disabled bool      // 204/304 時停用壓縮
}

func (cw *compressResponseWriter) Write(b []byte) (int, error) {
	if cw.disabled {
		return cw.ResponseWriter.Write(b)
	}
	// http.FileServer 會先設定 Content-Length，壓縮後長度不同
	cw.Header().Del("Content-Length")
	if cw.Header().Get("Content-Type") == "" {
		cw.Header().Set("Content-Type", http.DetectContentType(b))
	}
	return cw.w.Write(b)
}

func (cw *compressResponseWriter) WriteHeader(code int) {
	cw.Header().Del("Content-Length")
	if isNoBodyStatus(code) {
		cw.disabled = true
		cw.Header().Del("Content-Encoding")
		cw.Header().Del("Vary")
	}
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressResponseWriter) Flush() {
	if !cw.disabled {
		if f, ok := cw.w.(interface{ Flush() error }); ok {
			_ = f.Flush()
		}
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying response writer does not support Hijacker")
	}
	return hj.Hijack()
}

// Compression 使用 DefaultCompressConfig。
func Compression(next http.Handler) http.Handler {
	return Compress(DefaultCompressConfig)(next)
}

// Compress 依 Accept-Encoding 選擇 zstd 或 gzip。
// HEAD、WebSocket、Range 請求與 SkipExt 內的副檔名不壓縮：
// Range 回應的位移是針對原始內容計算的，壓縮後會對不上。
func Compress(cfg CompressConfig) func(http.Handler) http.Handler {
	pool := &encoderPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || isWebSocketUpgrade(r) || r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, skip := cfg.SkipExt[strings.ToLower(path.Ext(r.URL.Path))]; skip {
				next.ServeHTTP(w, r)
				return
			}
			if w.Header().Get("Content-Encoding") != "" {
				next.ServeHTTP(w, r)
				return
			}

			encoding := r.Header.Get("Accept-Encoding")
			switch {
			case strings.Contains(encoding, "zstd"):
				w.Header().Set("Content-Encoding", "zstd")
				w.Header().Add("Vary", "Accept-Encoding")
				zw := pool.getZstd(w)
				cw := &compressResponseWriter{ResponseWriter: w, w: zw}
				defer func() {
					// 停用時把 footer 丟到 io.Discard，避免污染 204/304
					if cw.disabled {
						zw.Reset(io.Discard)
					}
					pool.putZstd(zw)
				}()
				next.ServeHTTP(cw, r)
			case strings.Contains(encoding, "gzip"):
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Add("Vary", "Accept-Encoding")
				gw := pool.getGzip(w)
				cw := &compressResponseWriter{ResponseWriter: w, w: gw}
				defer func() {
					if cw.disabled {
						gw.Reset(io.Discard)
					}
					pool.putGzip(gw)
				}()
				next.ServeHTTP(cw, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
