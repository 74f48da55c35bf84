package zsocket

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMessage 入站多路复用器已永久耗尽，不会再有消息
	ErrNoMessage = errors.New("zsocket: no message available")
	// ErrClosed socket 已关闭
	ErrClosed = errors.New("zsocket: socket closed")
	// ErrEndpointBound endpoint 已有监听
	ErrEndpointBound = errors.New("zsocket: endpoint already bound")
)

// 无法投递回复时的原因
const (
	ReasonPeerDisconnected = "client disconnected"
	ReasonNoRequest        = "unable to send reply, no request in progress"
)

// ReturnToSenderError 回复无法投递，原消息原样带回，由调用方改投或丢弃
type ReturnToSenderError struct {
	Reason  string
	Message *Message
}

func (e *ReturnToSenderError) Error() string {
	return fmt.Sprintf("zsocket: return to sender: %s", e.Reason)
}

// ProtocolError 某个 peer 发来的消息违反协议（如帧数不足），
// 可恢复：不影响 socket 其他交互
type ProtocolError struct {
	Peer   PeerIdentity
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("zsocket: protocol violation from peer %q: %s", string(e.Peer), e.Reason)
}

// PeerError 单个 peer 入站流上的传输错误或不支持的帧类型，
// 可恢复：只影响该 peer，socket 整体继续工作
type PeerError struct {
	Peer PeerIdentity
	Err  error
}

func (e *PeerError) Error() string {
	return fmt.Sprintf("zsocket: peer %q: %v", string(e.Peer), e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}
