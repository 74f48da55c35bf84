// Package zsocket 实现 ZeroMQ 风格消息传输的 REP（应答）socket 模式：
// 严格一问一答交换的服务端，可同时服务任意多个请求方。
//
// 传输层（接受连接、协商帧流）与编解码层（字节与帧的互转）作为
// 外部协作者，通过 Accepter/FramedIo 接口接入；本包负责把多路
// 入站流公平合并为一条接收流，并依据不透明路由信封把回复送回
// 发起请求的那个 peer。
package zsocket

import (
	"github.com/panjf2000/ants/v2"
)

var goroutinePool *ants.Pool

// SetWorkPoolSize 设置连接注册工作池大小。
// 未设置时不启用工作池，注册任务直接起 goroutine。
func SetWorkPoolSize(size int) (err error) {
	if goroutinePool == nil {
		goroutinePool, err = ants.NewPool(size, ants.WithNonblocking(true))
		return
	}
	goroutinePool.Tune(size)
	return
}

// submit 提交到工作池，池未启用或满载时退化为普通 goroutine
func submit(f func()) {
	if goroutinePool != nil {
		if err := goroutinePool.Submit(f); err == nil {
			return
		}
	}
	go f()
}
