package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccdrover/ccdrover/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
)

type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

func TestDispatch(t *testing.T) {
	t.Run("executes handler asynchronously", func(t *testing.T) {
		var wg sync.WaitGroup
		executed := false

		wg.Add(1)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			executed = true
			return nil
		})

		wg.Wait()
		gt.True(t, executed)
	})

	t.Run("logs returned errors without crashing", func(t *testing.T) {
		buf := &safeBuffer{}
		ctx := ctxlog.With(context.Background(),
			slog.New(slog.NewTextHandler(buf, nil)))

		var wg sync.WaitGroup
		wg.Add(1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			defer wg.Done()
			return errors.New("notify failed")
		})
		wg.Wait()

		deadline := time.Now().Add(time.Second)
		for !strings.Contains(buf.String(), "notify failed") {
			if time.Now().After(deadline) {
				t.Fatal("error was not logged")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		done := make(chan struct{}, 1)
		async.Dispatch(context.Background(), func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			panic("boom")
		})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not complete")
		}
	})

	t.Run("handler outlives caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		var wg sync.WaitGroup
		wg.Add(1)
		async.Dispatch(ctx, func(bgCtx context.Context) error {
			defer wg.Done()
			cancel()
			select {
			case <-bgCtx.Done():
				t.Error("background context was canceled")
			default:
			}
			return nil
		})
		wg.Wait()
	})
}
