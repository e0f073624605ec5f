package httpc

import "context"

type deviceIDContextKey struct{}
type localeContextKey struct{}

// WithDeviceID attaches the host device identifier to ctx. Requests carry it
// as an X-Device-ID header.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

// WithLocale attaches the UI locale to ctx. Requests carry it as an
// Accept-Language header so the backend localizes generated content.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// DeviceIDFromContext returns the device identifier set by [WithDeviceID].
func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(deviceIDContextKey{}).(string)
	return id
}

// LocaleFromContext returns the locale set by [WithLocale].
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	locale, _ := ctx.Value(localeContextKey{}).(string)
	return locale
}
