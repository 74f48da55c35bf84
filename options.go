package zsocket

type Option func(opt *options)

type options struct {
	Logger             Logger // logger
	MonitorBufferSize  int    // 事件订阅通道容量
	FairQueueAutoEvict bool   // 流结束的源是否自动逐出公平队列
}

func defaultOptions() *options {
	return &options{
		Logger:             &logger{},
		MonitorBufferSize:  1024,
		FairQueueAutoEvict: true,
	}
}

// WithLogger 设置 logger
func WithLogger(logger Logger) Option {
	return func(opt *options) {
		opt.Logger = logger
	}
}

// WithMonitorBufferSize 设置事件订阅通道容量
func WithMonitorBufferSize(size int) Option {
	return func(opt *options) {
		if size > 0 {
			opt.MonitorBufferSize = size
		}
	}
}

// WithFairQueueAutoEvict 设置公平队列对流结束的源的处理策略：
// true 自动逐出（默认），false 挂起直到显式移除
func WithFairQueueAutoEvict(autoEvict bool) Option {
	return func(opt *options) {
		opt.FairQueueAutoEvict = autoEvict
	}
}
