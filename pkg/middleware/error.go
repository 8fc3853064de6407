package middleware

import (
	"errors"
	"net/http"

	"contract-lifecycle/pkg/errutil"
	applog "contract-lifecycle/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached by a handler. Classified errors keep
// their status; anything else is a 500 with a generic message.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var v errutil.BaseError
		if !errors.As(last.Err, &v) {
			applog.FromContext(c.Request.Context()).Error("unhandled request error", zap.Error(last.Err))
			v = errutil.BaseError{Code: errutil.StatusInternal, Message: http.StatusText(http.StatusInternalServerError)}
		} else if v.Code == errutil.StatusInfrastructure || v.Code == errutil.StatusInternal {
			applog.FromContext(c.Request.Context()).Error("request failed", zap.Error(last.Err))
		}

		c.AbortWithStatusJSON(v.Code.HTTPStatus(), v.JSON())
	}
}
