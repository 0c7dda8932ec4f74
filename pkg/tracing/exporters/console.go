// Package exporters holds span exporters for environments without a
// collector.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter writes one line per finished span. Intended for local
// runs; deployments wire a real exporter instead.
type ConsoleExporter struct {
	// Out defaults to stdout.
	Out io.Writer
}

func (c *ConsoleExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	for _, span := range spans {
		duration := span.EndTime().Sub(span.StartTime())
		if _, err := fmt.Fprintf(out, "span=%s duration=%s trace_id=%s\n", span.Name(), duration, span.SpanContext().TraceID()); err != nil {
			return err
		}
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(context.Context) error {
	return nil
}
