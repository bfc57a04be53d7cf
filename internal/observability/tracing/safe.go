package tracing

import (
	"errors"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

var safeAttributeKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"org_id":                  {},
	"job":                     {},
}

// SafeAttributes drops attributes that could leak tenant data onto spans.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := safeAttributeKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

var sensitivePattern = regexp.MustCompile(`(?i)(password|secret|token|authorization|bearer)`)

// SafeError redacts errors whose message may carry credentials before they are
// recorded on a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if sensitivePattern.MatchString(err.Error()) {
		return errors.New("redacted error")
	}
	return err
}
