package netstack

import (
	"context"

	"go.uber.org/zap"

	"chainflow/pkg/transport"
)

// Listen builds the transport for kind and starts listening on address.
// The listener closes when ctx ends.
func Listen(ctx context.Context, kind, address string) (transport.Listener, error) {
	tr, err := NewByKind(kind)
	if err != nil {
		return nil, err
	}
	l, err := tr.Listen(ctx, address)
	if err != nil {
		zap.L().Error("listen failed", zap.String("kind", tr.Kind().String()), zap.String("addr", address), zap.Error(err))
		return nil, err
	}
	zap.L().Info("listening", zap.String("kind", tr.Kind().String()), zap.String("addr", l.Addr().String()))
	return l, nil
}
