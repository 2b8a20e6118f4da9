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
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestBindVarFlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GAMEPACK_PORT", "9000")
	t.Setenv("GAMEPACK_LIVE_BUNDLE", "true")
	var stderr bytes.Buffer
	cfg, err := bindVar([]string{"-port", "9100", "-no-browser"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	sc := cfg.svrCfg(&stderr)
	if sc.Port != 9100 || !sc.LiveBundle || sc.OpenBrowser {
		t.Fatalf("unexpected server config: %+v", sc)
	}
}

func TestRunBadFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"-log-mode", "shout"}, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRunHeadlessBusyPortFails(t *testing.T) {
	t.Chdir(t.TempDir())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var stderr lockedBuf
	args := []string{"-headless", "-no-browser", "-host", "127.0.0.1", "-port", strconv.Itoa(port), "-log-mode", "quiet"}
	if code := run(ctx, args, &stderr); code != 1 {
		t.Fatalf("expected exit 1 on busy port, got %d: %s", code, stderr.String())
	}
	// run 返回前已 drain 非同步 logger
	if !strings.Contains(stderr.String(), "launcher start failed") {
		t.Fatalf("expected the start failure in the log:\n%s", stderr.String())
	}
}

type lockedBuf struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuf) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
