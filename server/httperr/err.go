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

// Package httperr 把 errs 分級映射到 HTTP 回應，只在 HTTP 邊界使用。
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/gamepack/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//   - ctx timeout/cancel → 504/408
//   - errs.Warn          → 400（請求或資料內容問題）
//   - errs.Fatal         → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	var e *errs.E
	if errors.As(err, &e) && e.ErrLv == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Body 是錯誤回應的 JSON 內容。
type Body struct {
	Error string `json:"error"`
	Level string `json:"level,omitempty"`
	Path  string `json:"path,omitempty"`
}

// Errs 以 JSON 寫回錯誤。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	b := Body{Error: err.Error()}
	if e, ok := errs.AsErr(err); ok {
		b.Level = errs.ErrLv(e.ErrLv)
		b.Path = e.Path
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(b)
}

// Log 依 status code 決定記錄等級：5xx 為 error，408/409/429 為 warn，其餘不記錄。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	switch {
	case status >= 500:
		log.Error(msg, slog.Any("err", err), slog.Int("status", status))
	case status == http.StatusRequestTimeout || status == http.StatusConflict || status == http.StatusTooManyRequests:
		log.Warn(msg, slog.Any("err", err), slog.Int("status", status))
	}
}
