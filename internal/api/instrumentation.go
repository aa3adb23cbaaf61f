package api

import "go.opentelemetry.io/contrib/bridges/otelslog"

var logger = otelslog.NewLogger("voicewidget/internal/api")
