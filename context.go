package sessionkit

import (
	"context"

	"github.com/loqui-app/sessionkit/httpc"
)

// WithDeviceID attaches the host device identifier to ctx. It is forwarded
// as an X-Device-ID header and as event metadata for session diagnostics.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return httpc.WithDeviceID(ctx, deviceID)
}

// WithLocale attaches the UI locale to ctx. Daily-content requests carry it
// as an Accept-Language header so the backend localizes generated items.
func WithLocale(ctx context.Context, locale string) context.Context {
	return httpc.WithLocale(ctx, locale)
}

func deviceIDFromContext(ctx context.Context) string {
	return httpc.DeviceIDFromContext(ctx)
}
