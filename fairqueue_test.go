package zsocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

func push(ch chan RecvResult, parts ...string) {
	ch <- RecvResult{Msg: NewMessageFromString(parts...)}
}

func TestFairQueueDelivers(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	stream := make(chan RecvResult, 4)
	q.Insert("A", stream)
	push(stream, "", "hello")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	id, res, err := q.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id != "A" {
		t.Fatalf("expected peer A, got %q", id)
	}
	if res.Msg.Len() != 2 || string(res.Msg.Frames[1]) != "hello" {
		t.Fatalf("unexpected message: %q", res.Msg.Frames)
	}
}

// 单路高频流不能饿死另一路就绪流
func TestFairQueueNoStarvation(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	busy := make(chan RecvResult, 128)
	quiet := make(chan RecvResult, 1)
	q.Insert("busy", busy)
	q.Insert("quiet", quiet)

	for i := 0; i < 100; i++ {
		push(busy, "", "spam")
	}
	push(quiet, "", "urgent")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for pulls := 1; ; pulls++ {
		id, _, err := q.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if id == "quiet" {
			if pulls > 2 {
				t.Fatalf("quiet peer starved for %d pulls", pulls)
			}
			return
		}
	}
}

func TestFairQueueBlockingWakeup(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	type result struct {
		id  PeerIdentity
		err error
	}
	got := make(chan result, 1)
	go func() {
		id, _, err := q.Next(context.Background())
		got <- result{id: id, err: err}
	}()

	// 消费端先阻塞，之后才注册新流
	time.Sleep(50 * time.Millisecond)
	stream := make(chan RecvResult, 1)
	push(stream, "", "late")
	q.Insert("L", stream)

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.id != "L" {
			t.Fatalf("expected peer L, got %q", r.id)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Next not woken by Insert")
	}
}

func TestFairQueueAutoEvict(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	stream := make(chan RecvResult, 1)
	q.Insert("gone", stream)
	close(stream)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("closed source not evicted, len=%d", q.Len())
	}
}

func TestFairQueueParkedUntilRemove(t *testing.T) {
	q := NewFairQueue(false)
	defer q.Close()

	stream := make(chan RecvResult, 1)
	q.Insert("parked", stream)
	close(stream)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if q.Len() != 1 {
		t.Fatalf("parked source should stay registered, len=%d", q.Len())
	}

	q.Remove("parked")
	if q.Len() != 0 {
		t.Fatalf("explicit remove failed, len=%d", q.Len())
	}
}

// 放弃一次拉取后队列保持一致，可继续消费
func TestFairQueueCancelThenResume(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := q.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	stream := make(chan RecvResult, 1)
	push(stream, "", "after-cancel")
	q.Insert("R", stream)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	id, _, err := q.Next(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	if id != "R" {
		t.Fatalf("expected peer R, got %q", id)
	}
}

func TestFairQueueClose(t *testing.T) {
	q := NewFairQueue(true)

	got := make(chan error, 1)
	go func() {
		_, _, err := q.Next(context.Background())
		got <- err
	}()
	time.Sleep(50 * time.Millisecond)
	q.Close()
	q.Close() // 幂等

	select {
	case err := <-got:
		if !errors.Is(err, ErrNoMessage) {
			t.Fatalf("expected ErrNoMessage, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Next not released by Close")
	}

	if _, _, err := q.Next(context.Background()); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage after close, got %v", err)
	}
}

func TestFairQueuePerPeerError(t *testing.T) {
	q := NewFairQueue(true)
	defer q.Close()

	stream := make(chan RecvResult, 1)
	q.Insert("E", stream)
	stream <- RecvResult{Err: errors.New("connection reset")}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	id, res, err := q.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id != "E" || res.Err == nil {
		t.Fatalf("expected per-peer error from E, got id=%q res=%+v", id, res)
	}
}
