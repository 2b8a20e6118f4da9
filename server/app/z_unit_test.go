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

package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeComp struct {
	stop     chan struct{}
	runErr   error
	shutdown atomic.Int32
}

func newFake(runErr error) *fakeComp {
	return &fakeComp{stop: make(chan struct{}), runErr: runErr}
}

func (f *fakeComp) Run() error {
	if f.runErr != nil {
		return f.runErr
	}
	<-f.stop
	return nil
}

func (f *fakeComp) Shutdown(context.Context) error {
	if f.shutdown.Add(1) == 1 && f.runErr == nil {
		close(f.stop)
	}
	return nil
}

func TestRunContextStopsOnCancel(t *testing.T) {
	a, b := newFake(nil), newFake(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWith(a, b).RunContext(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	if a.shutdown.Load() != 1 || b.shutdown.Load() != 1 {
		t.Fatal("every component must be shut down once")
	}
}

func TestRunReturnsComponentError(t *testing.T) {
	boom := errors.New("bind failed")
	ok, bad := newFake(nil), newFake(boom)
	err := NewWith(ok, bad).WithShutdownTimeout(time.Second).RunContext(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected component error, got %v", err)
	}
	if ok.shutdown.Load() != 1 {
		t.Fatal("healthy component must be shut down")
	}
}
