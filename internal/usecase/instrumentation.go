package usecase

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "voicewidget/internal/usecase"

var logger = otelslog.NewLogger(scopeName)
