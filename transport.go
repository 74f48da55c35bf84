package zsocket

import (
	"context"
)

// RecvKind 入站单元的类别
type RecvKind int

const (
	// KindMessage 数据消息
	KindMessage RecvKind = iota
	// KindCommand 编解码层透传上来的协议命令帧，本层不解释
	KindCommand
)

// RecvResult 读半路产出的一个单元：数据消息、命令帧或传输错误
type RecvResult struct {
	Kind RecvKind
	Msg  *Message
	Err  error
}

// FrameWriter 一条连接的出站帧通道（写半路）。
// 本层不对写做内部加锁，同一时刻只允许一个发送方写入，
// 串行化由外层 REP socket 保证。
type FrameWriter interface {
	WriteMsg(m *Message) error
	Close() error
}

// FramedIo 一条连接经编解码后的双工帧通道，注册时拆分为读写半路。
// 字节级解析在编解码层完成，本层只收发完整的多帧消息。
type FramedIo interface {
	FrameWriter

	// RecvStream 读半路；底层连接关闭后该通道被 close
	RecvStream() <-chan RecvResult
}

// Endpoint 监听地址，本层不做解析
type Endpoint string

// Accepter 传输层的 accept 机制：每个新连接产出一个连接标识
// 和一条可拆分读写的帧通道
type Accepter interface {
	Accept(ctx context.Context) (PeerIdentity, FramedIo, error)
}

// AcceptStopHandle 一个活动监听的停止句柄
type AcceptStopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop 停止 accept 循环并等待其退出，幂等
func (h *AcceptStopHandle) Stop() {
	h.cancel()
	<-h.done
}

// serveAccepter 循环 accept，新连接提交到工作池注册进 backend。
// accept 出错（除取消外）时该监听终止。
func serveAccepter(ctx context.Context, backend MultiPeerBackend, acc Accepter, logger Logger) *AcceptStopHandle {
	ctx, cancel := context.WithCancel(ctx)
	handle := &AcceptStopHandle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(handle.done)
		for {
			id, io, err := acc.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Errorf("zsocket: accept failed: %v", err)
				return
			}

			peerID, peerIo := id, io
			submit(func() {
				backend.PeerConnected(peerID, peerIo)
			})
		}
	}()
	return handle
}
