package zsocket

// Frame 多帧消息中的一帧；空帧在路由信封中作为分隔符使用
type Frame []byte

// IsEmpty 是否为空帧（分隔符）
func (f Frame) IsEmpty() bool {
	return len(f) == 0
}

func (f Frame) Clone() Frame {
	c := make(Frame, len(f))
	copy(c, f)
	return c
}

// Message 多帧消息（multipart message），帧有序且至少一帧
type Message struct {
	Frames []Frame
}

// NewMessage 由若干帧组装消息
func NewMessage(frames ...Frame) *Message {
	return &Message{Frames: frames}
}

// NewMessageFromBytes 由字节切片组装消息
func NewMessageFromBytes(parts ...[]byte) *Message {
	frames := make([]Frame, 0, len(parts))
	for _, p := range parts {
		frames = append(frames, Frame(p))
	}
	return &Message{Frames: frames}
}

// NewMessageFromString 由字符串组装消息
func NewMessageFromString(parts ...string) *Message {
	frames := make([]Frame, 0, len(parts))
	for _, p := range parts {
		frames = append(frames, Frame(p))
	}
	return &Message{Frames: frames}
}

// Len 帧数
func (m *Message) Len() int {
	return len(m.Frames)
}

// Clone 深拷贝
func (m *Message) Clone() *Message {
	frames := make([]Frame, 0, len(m.Frames))
	for _, f := range m.Frames {
		frames = append(frames, f.Clone())
	}
	return &Message{Frames: frames}
}

// SplitOff 把下标 at 起（含 at）的帧拆分为新消息返回，m 保留前缀
func (m *Message) SplitOff(at int) *Message {
	if at >= len(m.Frames) {
		return &Message{}
	}
	tail := m.Frames[at:]
	m.Frames = m.Frames[:at:at]
	return &Message{Frames: tail}
}

// Prepend 把 other 的帧插到 m 的帧之前（回填路由信封时使用）
func (m *Message) Prepend(other *Message) {
	if other == nil || len(other.Frames) == 0 {
		return
	}
	frames := make([]Frame, 0, len(other.Frames)+len(m.Frames))
	frames = append(frames, other.Frames...)
	frames = append(frames, m.Frames...)
	m.Frames = frames
}

// envelopeSplitAt 返回信封与载荷的切分点：
// 第一个空帧之后；没有空帧时固定为 1（首帧视作路由帧）。
func envelopeSplitAt(m *Message) int {
	at := 1
	for i, frame := range m.Frames {
		if frame.IsEmpty() {
			// 分隔符算在信封内
			at = i + 1
			break
		}
	}
	return at
}
