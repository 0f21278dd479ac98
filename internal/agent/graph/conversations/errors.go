package conversations

import (
	"net/http"

	errx "github.com/catalogue-assistant/server/internal/core/error"
)

// ErrTranscriptsDisabled is returned by LoadRun when no store is configured.
var ErrTranscriptsDisabled = errx.New(nil, http.StatusNotFound, "transcript storage is disabled")
