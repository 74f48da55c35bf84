package zsocket

import (
	"github.com/pborman/uuid"
)

// NewPeerIdentity 为新连接生成一个标识。
// 传输层也可以换用自己的标识（如 ZMTP 握手中协商的 identity），
// 只要保证同时存活的连接之间不重复。
func NewPeerIdentity() PeerIdentity {
	return PeerIdentity(uuid.NewRandom().String())
}
