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

package httperr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zintix-labs/gamepack/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errs.Wrap(context.Canceled, "wrapped"), http.StatusRequestTimeout},
		{errs.NewWarn("bad data"), http.StatusBadRequest},
		{errs.NewFatal("disk"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("StatusCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Errs(rec, errs.NewFatal("failed to parse data file").WithPath("data/quiz/cp.json"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var b Body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.Level != "fatal" || b.Path != "data/quiz/cp.json" {
		t.Fatalf("unexpected body %+v", b)
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	Log(log, "bundle", errs.NewWarn("bad request"))
	if buf.Len() != 0 {
		t.Fatalf("4xx should not be logged: %s", buf.String())
	}
	Log(log, "bundle", errs.NewFatal("boom"))
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx should be logged as error: %s", buf.String())
	}
}
