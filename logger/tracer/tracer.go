package tracer

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	severityError = "ERROR"
	severityWarn  = "WARN"

	// fieldsDivisor is used to calculate initial capacity for OpenTelemetry fields.
	fieldsDivisor = 2
)

// NewTraceFromContext correlates a log record with OpenTelemetry.
//
// With an active span the record becomes a "log.<severity>" event on it.
// Without one, WARN and ERROR records get a short span of their own, and
// lower severities pass through untouched. Whenever a span is involved the
// returned fields carry traceID and spanID.
func NewTraceFromContext(
	ctx context.Context,
	severity string,
	msg string,
	tags []attribute.KeyValue,
	fields ...any,
) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := make([]attribute.KeyValue, 0, len(tags)+len(fields)/fieldsDivisor+2)
	attrs = append(attrs,
		attribute.String("log.severity", severity),
		attribute.String("log.message", msg),
	)
	attrs = append(attrs, tags...)
	attrs = append(attrs, FieldsToOpenTelemetry(fields...)...)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() && span.IsRecording() {
		span.AddEvent("log."+severity, trace.WithAttributes(attrs...))

		if severity == severityError {
			span.SetStatus(codes.Error, msg)
		}

		return withCorrelation(fields, span.SpanContext()), nil
	}

	if severity != severityError && severity != severityWarn {
		return fields, nil
	}

	_, short := otel.Tracer("logger").Start(ctx, "log."+severity)
	short.SetAttributes(attrs...)

	if severity == severityError {
		short.SetStatus(codes.Error, msg)
	}

	short.End()

	return withCorrelation(fields, short.SpanContext()), nil
}

func withCorrelation(fields []any, sc trace.SpanContext) []any {
	if !sc.IsValid() {
		return fields
	}

	out := make([]any, 0, len(fields)+4) //nolint:mnd // two key/value pairs
	out = append(out, fields...)
	out = append(out, "traceID", sc.TraceID().String(), "spanID", sc.SpanID().String())

	return out
}

// FieldsToOpenTelemetry converts key/value fields to OpenTelemetry attributes.
//
// The "error" key maps to exception.message. "is_error" maps to log.is_error
// and accepts a bool or its string form.
func FieldsToOpenTelemetry(fields ...any) []attribute.KeyValue {
	if len(fields) == 0 {
		return nil
	}

	out := make([]attribute.KeyValue, 0, len(fields)/fieldsDivisor)

	for idx := 0; idx+1 < len(fields); idx += 2 {
		key, ok := fields[idx].(string)
		if !ok {
			continue // Skip non-string keys
		}

		value := fields[idx+1]

		switch key {
		case "error", "err":
			if b, isBool := value.(bool); isBool {
				out = append(out, attribute.Bool("log.is_error", b))

				continue
			}

			out = append(out,
				attribute.String("exception.message", toString(value)),
				attribute.String("exception.type", fmt.Sprintf("%T", value)),
			)

			continue
		case "is_error":
			if b, isBool := asBool(value); isBool {
				out = append(out, attribute.Bool("log.is_error", b))

				continue
			}
		}

		switch val := value.(type) {
		case string:
			out = append(out, attribute.String(key, val))
		case bool:
			out = append(out, attribute.Bool(key, val))
		case int:
			out = append(out, attribute.Int(key, val))
		case int32:
			out = append(out, attribute.Int(key, int(val)))
		case int64:
			out = append(out, attribute.Int64(key, val))
		case float64:
			out = append(out, attribute.Float64(key, val))
		case error:
			out = append(out, attribute.String(key, val.Error()))
		default:
			out = append(out, attribute.String(key, toString(val)))
		}
	}

	return out
}

func asBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false, false
		}

		return b, true
	default:
		return false, false
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}

	if err, ok := v.(error); ok {
		return err.Error()
	}

	return fmt.Sprintf("%v", v)
}
