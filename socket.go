package zsocket

import "context"

// PeerIdentity 连接级别的不透明标识，connect 时由传输层指定。
// 同一时刻存活的连接之间唯一，作为收发两侧注册表的 key。
type PeerIdentity string

// SocketType socket 模式（取值与 ZMTP 编号一致）
type SocketType int

const (
	REQ SocketType = 3
	REP SocketType = 4
)

func (t SocketType) String() string {
	switch t {
	case REQ:
		return "REQ"
	case REP:
		return "REP"
	}
	return "UNKNOWN"
}

// EventType socket 事件类型
type EventType int

const (
	EventConnected EventType = iota + 1
	EventDisconnected
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	}
	return "UNKNOWN"
}

// SocketEvent peer 接入/断开事件，尽力投递给监控方
type SocketEvent struct {
	Type EventType
	Peer PeerIdentity
}

// SocketBackend 各 socket 模式后端的公共能力
type SocketBackend interface {
	// SocketType 模式标识，供上层套接字管理代码做内省
	SocketType() SocketType
	// Monitor 安装事件订阅者并返回接收端，替换之前的订阅者
	Monitor() <-chan SocketEvent
	// Shutdown 清空 peer 注册表，幂等
	Shutdown()
}

// MultiPeerBackend 多 peer 模式后端，由传输层在连接建立/断开时回调
type MultiPeerBackend interface {
	SocketBackend

	// PeerConnected 注册新连接：写半路进出站注册表，读半路进公平队列
	PeerConnected(id PeerIdentity, io FramedIo)
	// PeerDisconnected 注销连接，之后发往该 peer 的回复快速失败
	PeerDisconnected(id PeerIdentity)
}

// SocketRecv 可接收消息的 socket
type SocketRecv interface {
	Recv(ctx context.Context) (*Message, error)
}

// SocketSend 可发送消息的 socket
type SocketSend interface {
	Send(ctx context.Context, m *Message) error
}

// Socket 套接字管理边界，各模式统一通过该接口被外部持有
type Socket interface {
	Backend() MultiPeerBackend
	Monitor() <-chan SocketEvent
	Bind(endpoint Endpoint, acc Accepter) error
	Unbind(endpoint Endpoint)
	Close() error
}
