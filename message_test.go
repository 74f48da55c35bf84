package zsocket

import (
	"bytes"
	"testing"
)

func TestMessageSplitOff(t *testing.T) {
	m := NewMessageFromString("id", "", "payload")
	tail := m.SplitOff(2)
	if m.Len() != 2 || tail.Len() != 1 {
		t.Fatalf("unexpected split: prefix %d frames, tail %d frames", m.Len(), tail.Len())
	}
	if !bytes.Equal(tail.Frames[0], []byte("payload")) {
		t.Fatalf("tail = %q", tail.Frames[0])
	}
	if !m.Frames[1].IsEmpty() {
		t.Fatal("prefix should end with delimiter frame")
	}

	empty := NewMessageFromString("a").SplitOff(5)
	if empty.Len() != 0 {
		t.Fatalf("out-of-range split should be empty, got %d frames", empty.Len())
	}
}

func TestMessagePrepend(t *testing.T) {
	m := NewMessageFromString("world")
	m.Prepend(NewMessageFromString("id", ""))
	if m.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", m.Len())
	}
	if string(m.Frames[0]) != "id" || !m.Frames[1].IsEmpty() || string(m.Frames[2]) != "world" {
		t.Fatalf("unexpected frames: %q", m.Frames)
	}

	m.Prepend(nil)
	if m.Len() != 3 {
		t.Fatal("prepending nil should be a no-op")
	}
}

func TestEnvelopeSplitAt(t *testing.T) {
	cases := []struct {
		name string
		msg  *Message
		want int
	}{
		{"delimiter first", NewMessageFromString("", "hello"), 1},
		{"identity then delimiter", NewMessageFromString("id", "", "hello"), 2},
		{"no delimiter", NewMessageFromString("id", "hello", "world"), 1},
		{"delimiter in payload only counts once", NewMessageFromString("id", "", "x", "", "y"), 2},
	}
	for _, c := range cases {
		if got := envelopeSplitAt(c.msg); got != c.want {
			t.Fatalf("%s: split at %d, want %d", c.name, got, c.want)
		}
	}
}

func TestFrameClone(t *testing.T) {
	f := Frame("abc")
	c := f.Clone()
	c[0] = 'x'
	if string(f) != "abc" {
		t.Fatal("clone aliases original frame")
	}

	m := NewMessageFromString("a", "b")
	mc := m.Clone()
	mc.Frames[0][0] = 'z'
	if string(m.Frames[0]) != "a" {
		t.Fatal("message clone aliases original frames")
	}
}
