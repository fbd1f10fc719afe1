// Package testutil contains helper builders and scripted fakes used across
// tests to reduce boilerplate when constructing core model objects (sessions,
// events, content parts) and driving agent trees deterministically. These
// helpers are intentionally minimal and are not intended for production
// usage.
package testutil
