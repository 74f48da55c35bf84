// 内存传输上的 REP 回声服务示例：若干客户端并发接入并请求，
// 服务端按公平调度逐条应答，回复由路由信封送回各自的客户端。
package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/hunyxv/zsocket"
	"github.com/vmihailenco/msgpack/v5"
)

type request struct {
	Name string `msgpack:"name"`
	Seq  int    `msgpack:"seq"`
}

type response struct {
	Greeting string `msgpack:"greeting"`
}

// conn 演示用的内存帧通道
type conn struct {
	in  chan zsocket.RecvResult
	out chan *zsocket.Message
}

func newConn() *conn {
	return &conn{
		in:  make(chan zsocket.RecvResult, 8),
		out: make(chan *zsocket.Message, 8),
	}
}

func (c *conn) RecvStream() <-chan zsocket.RecvResult {
	return c.in
}

func (c *conn) WriteMsg(m *zsocket.Message) error {
	c.out <- m
	return nil
}

func (c *conn) Close() error {
	return nil
}

// accepter 演示用的 accept 机制：从通道取新连接
type accepter struct {
	conns chan *conn
}

func (a *accepter) Accept(ctx context.Context) (zsocket.PeerIdentity, zsocket.FramedIo, error) {
	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case c := <-a.conns:
		return zsocket.NewPeerIdentity(), c, nil
	}
}

func main() {
	if err := zsocket.SetWorkPoolSize(8); err != nil {
		log.Fatal(err)
	}

	sock := zsocket.NewRepSocket()
	defer sock.Close()

	acc := &accepter{conns: make(chan *conn, 8)}
	if err := sock.Bind("inproc://greeter", acc); err != nil {
		log.Fatal(err)
	}

	// 服务端循环：一问一答
	go func() {
		ctx := context.Background()
		for {
			payload, err := sock.Recv(ctx)
			if err != nil {
				return
			}

			var req request
			if err := msgpack.Unmarshal(payload.Frames[0], &req); err != nil {
				log.Printf("bad request: %v", err)
				continue
			}
			raw, _ := msgpack.Marshal(response{
				Greeting: fmt.Sprintf("hello %s (#%d)", req.Name, req.Seq),
			})
			if err := sock.Send(ctx, zsocket.NewMessageFromBytes(raw)); err != nil {
				log.Printf("reply failed: %v", err)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newConn()
			acc.conns <- c

			raw, _ := msgpack.Marshal(request{Name: fmt.Sprintf("client-%d", i), Seq: i})
			c.in <- zsocket.RecvResult{
				Msg: zsocket.NewMessageFromBytes(nil, raw), // 空帧分隔符 + 载荷
			}

			reply := <-c.out
			var resp response
			if err := msgpack.Unmarshal(reply.Frames[1], &resp); err != nil {
				log.Printf("bad reply: %v", err)
				return
			}
			fmt.Println(resp.Greeting)
		}(i)
	}
	wg.Wait()
}
