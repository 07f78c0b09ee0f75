package middleware

import (
	"fmt"
	"net/http"

	"markdesk-server/internal/logger"
	"markdesk-server/internal/sentryx"
)

func reportPanic(r *http.Request, rec any) {
	err, ok := rec.(error)
	if !ok {
		err = fmt.Errorf("%v", rec)
	}
	logger.WithComponent("PANIC").ErrorWithStack(fmt.Sprintf("panic serving %s %s", r.Method, r.URL.Path), err)
	sentryx.CaptureError(err, "panic method=%s path=%s", r.Method, r.URL.Path)
}
