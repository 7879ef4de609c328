package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/infratech-maker/apclo-partner-crm/internal/errors"
)

// RecoveryMiddleware converts panics into the standard error envelope.
// Unhandled faults carry the cause and stack in the traceback field.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		cause := fmt.Sprintf("%v", recovered)
		stack := string(debug.Stack())

		GetLoggerFromContext(c).Error("Panic recovered in handler", fmt.Errorf("%s", cause), map[string]interface{}{
			"path": c.Request.URL.Path,
		})

		apperrors.InternalErrorWithTrace(c, cause, stack)
	})
}
