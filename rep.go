package zsocket

import (
	"context"
	"sync"

	"github.com/hunyxv/utils/spinlock"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
)

// repPeer 已连接 peer 的出站侧。写入不在内部加锁，
// 同一时刻只有一次 REP 发送操作会写它（由外层 socket 串行保证）。
type repPeer struct {
	identity  PeerIdentity
	sendQueue FrameWriter
}

// repBackend REP 模式后端：连接注册/注销的唯一入口，同时是出站路由表。
// peers 支持来自多个传输 accept 任务的并发插入/删除/查找。
type repBackend struct {
	peers     sync.Map // PeerIdentity -> *repPeer
	fairQueue *FairQueue

	monitorLock sync.Locker
	monitor     chan SocketEvent
	monitorSize int

	logger Logger
}

var _ MultiPeerBackend = (*repBackend)(nil)

func (b *repBackend) SocketType() SocketType {
	return REP
}

// PeerConnected 拆分连接的帧通道：写半路进出站路由表，
// 读半路以同一标识注册进公平队列
func (b *repBackend) PeerConnected(id PeerIdentity, io FramedIo) {
	b.peers.Store(id, &repPeer{identity: id, sendQueue: io})
	b.fairQueue.Insert(id, io.RecvStream())
	b.event(SocketEvent{Type: EventConnected, Peer: id})
	b.logger.Debugf("zsocket: peer %q connected", string(id))
}

// PeerDisconnected 注销连接。读半路同步逐出公平队列，
// 避免再交付已无法回复的 peer 的消息；与正在阻塞的 Recv
// 竞争时，该 peer 最多还有一条在途消息被交付。
func (b *repBackend) PeerDisconnected(id PeerIdentity) {
	b.event(SocketEvent{Type: EventDisconnected, Peer: id})
	b.peers.Delete(id)
	b.fairQueue.Remove(id)
	b.logger.Debugf("zsocket: peer %q disconnected", string(id))
}

// Shutdown 关闭所有 peer 的写半路并清空注册表，幂等
func (b *repBackend) Shutdown() {
	b.peers.Range(func(key, value interface{}) bool {
		peer := value.(*repPeer)
		if err := peer.sendQueue.Close(); err != nil {
			b.logger.Warnf("zsocket: close peer %q: %v", string(peer.identity), err)
		}
		b.peers.Delete(key)
		return true
	})
}

// Monitor 安装新的事件订阅者并返回接收端，原订阅者被原子替换
func (b *repBackend) Monitor() <-chan SocketEvent {
	ch := make(chan SocketEvent, b.monitorSize)
	b.monitorLock.Lock()
	b.monitor = ch
	b.monitorLock.Unlock()
	return ch
}

// event 尽力投递事件：无订阅者或订阅者写满时直接丢弃，绝不阻塞触发方
func (b *repBackend) event(ev SocketEvent) {
	b.monitorLock.Lock()
	ch := b.monitor
	b.monitorLock.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// RepSocket 严格一问一答模式的服务端，同时服务任意多个请求方。
// Recv/Send 必须由单一逻辑持有者串行调用，socket 自身状态不做内部同步；
// 后端注册表则可被传输层的多个任务并发回调。
type RepSocket struct {
	backend   *repBackend
	fairQueue *FairQueue

	envelope *Message     // 暂存的路由信封，下次 Send 回填
	current  PeerIdentity // 欠回复的 peer，空串表示无

	bindsLock sync.Mutex
	binds     map[Endpoint]*AcceptStopHandle

	logger    Logger
	closeOnce sync.Once
}

var (
	_ Socket     = (*RepSocket)(nil)
	_ SocketRecv = (*RepSocket)(nil)
	_ SocketSend = (*RepSocket)(nil)
)

// NewRepSocket 创建 REP socket
func NewRepSocket(opts ...Option) *RepSocket {
	defOpts := defaultOptions()
	for _, f := range opts {
		f(defOpts)
	}

	fq := NewFairQueue(defOpts.FairQueueAutoEvict)
	return &RepSocket{
		backend: &repBackend{
			fairQueue:   fq,
			monitorLock: spinlock.NewSpinLock(),
			monitorSize: defOpts.MonitorBufferSize,
			logger:      defOpts.Logger,
		},
		fairQueue: fq,
		binds:     make(map[Endpoint]*AcceptStopHandle),
		logger:    defOpts.Logger,
	}
}

// Backend 供传输层回调的后端
func (s *RepSocket) Backend() MultiPeerBackend {
	return s.backend
}

// Monitor 订阅 peer 接入/断开事件，替换之前的订阅者
func (s *RepSocket) Monitor() <-chan SocketEvent {
	return s.backend.Monitor()
}

// Bind 在 endpoint 上启动 accept 循环，接入的连接注册到后端
func (s *RepSocket) Bind(endpoint Endpoint, acc Accepter) error {
	s.bindsLock.Lock()
	defer s.bindsLock.Unlock()
	if _, ok := s.binds[endpoint]; ok {
		return errors.Wrapf(ErrEndpointBound, "endpoint %s", string(endpoint))
	}
	s.binds[endpoint] = serveAccepter(context.Background(), s.backend, acc, s.logger)
	return nil
}

// Unbind 停掉 endpoint 上的监听，幂等
func (s *RepSocket) Unbind(endpoint Endpoint) {
	s.bindsLock.Lock()
	handle, ok := s.binds[endpoint]
	delete(s.binds, endpoint)
	s.bindsLock.Unlock()
	if ok {
		handle.Stop()
	}
}

// Binds 当前活动监听的 endpoint
func (s *RepSocket) Binds() []Endpoint {
	s.bindsLock.Lock()
	defer s.bindsLock.Unlock()
	endpoints := make([]Endpoint, 0, len(s.binds))
	for ep := range s.binds {
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

// Recv 取出下一条公平调度到的请求载荷，阻塞直到有数据。
//
// 消息前缀中第一个空帧（含）之前的帧作为路由信封暂存，没有空帧时
// 首帧视作路由帧；信封在下次 Send 时原样回填。再次 Recv 会无条件
// 覆盖上一个未答复的交换，旧请求从此无法回复（丢弃并替换语义）。
//
// 单个 peer 的传输错误、协议违规（少于 2 帧）和不支持的帧类型
// 都以可恢复错误返回，不影响 socket 后续交互；只有队列永久耗尽
// 返回 ErrNoMessage。
func (s *RepSocket) Recv(ctx context.Context) (*Message, error) {
	ctx, span := startSpan(ctx, "RepSocket.Recv")
	defer span.End()

	id, res, err := s.fairQueue.Next(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(peerAttr(id))

	if res.Err != nil {
		err := &PeerError{Peer: id, Err: res.Err}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if res.Kind != KindMessage {
		err := &PeerError{Peer: id, Err: errors.Errorf("unsupported inbound frame kind %d", res.Kind)}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	m := res.Msg
	if m == nil || m.Len() < 2 {
		err := &ProtocolError{Peer: id, Reason: "message with fewer than 2 frames"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	payload := m.SplitOff(envelopeSplitAt(m))
	s.envelope = m
	s.current = id
	return payload, nil
}

// Send 把回复投递给最近一次 Recv 的请求方。
//
// 无论成败，挂起的交换状态（peer 标识与信封）都被整体清空。
// 没有欠回复的请求、或该 peer 已断开时，返回 ReturnToSenderError
// 并把 m 原样带回；写半路层面的失败对本次调用是致命的。
func (s *RepSocket) Send(ctx context.Context, m *Message) error {
	_, span := startSpan(ctx, "RepSocket.Send")
	defer span.End()

	id, envelope := s.current, s.envelope
	s.current, s.envelope = "", nil

	if id == "" {
		span.SetStatus(codes.Error, ReasonNoRequest)
		return &ReturnToSenderError{Reason: ReasonNoRequest, Message: m}
	}
	span.SetAttributes(peerAttr(id))

	value, ok := s.backend.peers.Load(id)
	if !ok {
		span.SetStatus(codes.Error, ReasonPeerDisconnected)
		return &ReturnToSenderError{Reason: ReasonPeerDisconnected, Message: m}
	}
	peer := value.(*repPeer)

	// 浅拷贝后回填信封，失败路径带回的 m 保持原样
	out := NewMessage(m.Frames...)
	out.Prepend(envelope)
	if err := peer.sendQueue.WriteMsg(out); err != nil {
		err = errors.Wrapf(err, "zsocket: send reply to peer %q", string(id))
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Close 停掉所有监听、清空 peer 注册表并关闭公平队列，幂等
func (s *RepSocket) Close() error {
	s.closeOnce.Do(func() {
		s.bindsLock.Lock()
		handles := make([]*AcceptStopHandle, 0, len(s.binds))
		for ep, h := range s.binds {
			handles = append(handles, h)
			delete(s.binds, ep)
		}
		s.bindsLock.Unlock()
		for _, h := range handles {
			h.Stop()
		}

		s.backend.Shutdown()
		s.fairQueue.Close()
	})
	return nil
}
