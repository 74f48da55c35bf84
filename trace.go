package zsocket

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "zsocket-go"

// startSpan 为一次收/发操作开启 span，
// 使用全局 TracerProvider，未配置时为 no-op
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(tracerName).Start(ctx, name)
}

func peerAttr(id PeerIdentity) attribute.KeyValue {
	return attribute.String("zsocket.peer", string(id))
}
