package dispatch

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("voicewidget/internal/dispatch")
