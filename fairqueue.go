package zsocket

import (
	"context"
	"reflect"
	"sync"
)

// fqSource 公平队列中的一路入站流
type fqSource struct {
	id        PeerIdentity
	stream    <-chan RecvResult
	exhausted bool // 流已结束但未驱逐（autoEvict 为 false 时挂起）
}

// FairQueue 把任意多路独立到达的入站流合并为一条公平调度的流。
// 注册表和消费端共用一把锁：连接注册（Insert）与 recv 消费（Next）
// 来自不同的并发调用方，可随时交错。
//
// 公平性：多路流同时就绪时按轮转顺序交付，单路流持续就绪
// 不会无限推迟另一路就绪流的交付。
type FairQueue struct {
	autoEvict bool

	lock    sync.Mutex
	sources map[PeerIdentity]*fqSource
	order   []PeerIdentity // 轮转顺序
	next    int            // 下一轮轮询起点

	membership chan struct{} // 注册表变更信号，容量 1
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewFairQueue 创建公平队列。
// autoEvict 为 true 时，读半路通道关闭（连接断开）的源自动移出注册表；
// 为 false 时该源被挂起不再调度，直到显式 Remove。
func NewFairQueue(autoEvict bool) *FairQueue {
	return &FairQueue{
		autoEvict:  autoEvict,
		sources:    make(map[PeerIdentity]*fqSource),
		membership: make(chan struct{}, 1),
		closed:     make(chan struct{}),
	}
}

// Insert 注册一路入站流，同标识的旧流被替换
func (q *FairQueue) Insert(id PeerIdentity, stream <-chan RecvResult) {
	q.lock.Lock()
	if _, ok := q.sources[id]; !ok {
		q.order = append(q.order, id)
	}
	q.sources[id] = &fqSource{id: id, stream: stream}
	q.lock.Unlock()
	q.notify()
}

// Remove 移出一路入站流，幂等。
// 已阻塞在 Next 里的拉取持有旧的注册表快照，
// 与 Remove 竞争时最多还会交付该流的一条在途数据。
func (q *FairQueue) Remove(id PeerIdentity) {
	q.lock.Lock()
	q.removeLocked(id)
	q.lock.Unlock()
}

func (q *FairQueue) removeLocked(id PeerIdentity) {
	if _, ok := q.sources[id]; !ok {
		return
	}
	delete(q.sources, id)
	for i, sid := range q.order {
		if sid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			if q.next > i {
				q.next--
			}
			break
		}
	}
	if len(q.order) == 0 {
		q.next = 0
	} else {
		q.next %= len(q.order)
	}
}

// Len 当前注册的流数
func (q *FairQueue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.sources)
}

// Close 永久关闭队列，阻塞中的和之后的 Next 都返回 ErrNoMessage
func (q *FairQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

func (q *FairQueue) notify() {
	select {
	case q.membership <- struct{}{}:
	default:
	}
}

// endOfStream 处理读到流结束的源：驱逐或挂起
func (q *FairQueue) endOfStream(src *fqSource) {
	if q.autoEvict {
		q.removeLocked(src.id)
		return
	}
	src.exhausted = true
}

// Next 取出下一条入站单元，无流就绪时阻塞。
// 返回的 error 只反映队列级状态：ErrNoMessage（队列已关闭、永久耗尽）
// 或 ctx 的取消错误；单路流的传输错误随 RecvResult 带出。
// ctx 取消只放弃本次拉取，队列保持一致，可继续调用。
func (q *FairQueue) Next(ctx context.Context) (PeerIdentity, RecvResult, error) {
	for {
		select {
		case <-q.closed:
			return "", RecvResult{}, ErrNoMessage
		case <-ctx.Done():
			return "", RecvResult{}, ctx.Err()
		default:
		}

		q.lock.Lock()
		if id, res, ok := q.pollLocked(); ok {
			q.lock.Unlock()
			return id, res, nil
		}

		// 无就绪流，带着注册表快照阻塞等待
		ids, cases := q.selectCasesLocked(ctx)
		q.lock.Unlock()

		chosen, value, ok := reflect.Select(cases)
		switch chosen {
		case 0: // ctx.Done
			return "", RecvResult{}, ctx.Err()
		case 1: // closed
			return "", RecvResult{}, ErrNoMessage
		case 2: // membership 变更，重新轮询
			continue
		}

		id := ids[chosen-3]
		if !ok { // 该路流结束
			q.lock.Lock()
			if src, live := q.sources[id]; live {
				q.endOfStream(src)
			}
			q.lock.Unlock()
			continue
		}

		// 交付，并把轮转起点推进到该源之后
		q.lock.Lock()
		q.advanceAfterLocked(id)
		q.lock.Unlock()
		return id, value.Interface().(RecvResult), nil
	}
}

// pollLocked 从上次交付的下一路开始做一轮非阻塞轮询
func (q *FairQueue) pollLocked() (PeerIdentity, RecvResult, bool) {
restart:
	n := len(q.order)
	for i := 0; i < n; i++ {
		idx := (q.next + i) % n
		src := q.sources[q.order[idx]]
		if src.exhausted {
			continue
		}
		select {
		case res, ok := <-src.stream:
			if !ok {
				// 流结束会改动轮转表，处理后重新开始本轮
				q.endOfStream(src)
				goto restart
			}
			q.next = (idx + 1) % n
			return src.id, res, true
		default:
		}
	}
	return "", RecvResult{}, false
}

// selectCasesLocked 组装阻塞等待的 select 分支：
// 固定三路（取消、关闭、注册表变更）加注册表内所有未挂起的流
func (q *FairQueue) selectCasesLocked(ctx context.Context) ([]PeerIdentity, []reflect.SelectCase) {
	ids := make([]PeerIdentity, 0, len(q.order))
	cases := make([]reflect.SelectCase, 0, len(q.order)+3)
	cases = append(cases,
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(q.closed)},
		reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(q.membership)},
	)
	for _, id := range q.order {
		src := q.sources[id]
		if src.exhausted {
			continue
		}
		ids = append(ids, id)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(src.stream),
		})
	}
	return ids, cases
}

// advanceAfterLocked 把轮转起点移到 id 之后
func (q *FairQueue) advanceAfterLocked(id PeerIdentity) {
	for i, sid := range q.order {
		if sid == id {
			q.next = (i + 1) % len(q.order)
			return
		}
	}
}
