package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

// ErrorHandler renders the last error a handler attached with c.Error as
// {"error": message}. Unclassified errors become a generic 500 and are
// logged in full. details are included only when debug is true.
func ErrorHandler(log *zap.Logger, debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := Classify(err)

		if appErr.Kind == apperr.KindPersistence {
			log.Error("request failed",
				zap.Error(err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
			)
		}

		body := gin.H{"error": appErr.Message}
		if debug {
			if details := appErr.Details; details != "" {
				body["details"] = details
			} else {
				body["details"] = err.Error()
			}
		}
		c.AbortWithStatusJSON(appErr.Status(), body)
	}
}

// Classify maps any error to the application taxonomy.
func Classify(err error) *apperr.Error {
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindPersistence {
		return appErr
	}

	switch {
	case errors.Is(err, store.ErrDuplicate):
		return apperr.Conflict("Resource already exists.")
	case errors.Is(err, store.ErrReferenced):
		return apperr.Conflict("Resource is referenced by other records.")
	case errors.Is(err, store.ErrInvalidReference):
		return apperr.Validation("Referenced resource does not exist.")
	case errors.Is(err, store.ErrConstraint):
		return apperr.Validation("Invalid data or constraint violation.")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Resource not found.")
	case errors.Is(err, auth.ErrTokenExpired):
		return apperr.Unauthenticated(msgTokenExpired)
	case errors.Is(err, auth.ErrInvalidToken):
		return apperr.Forbidden(msgInvalidToken)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return apperr.Conflict("Resource already exists.")
		case 1451, 1217:
			return apperr.Conflict("Resource is referenced by other records.")
		case 1452, 1216:
			return apperr.Validation("Referenced resource does not exist.")
		case 3819, 1264, 1406, 1366:
			return apperr.Validation("Invalid data or constraint violation.")
		}
	}

	return apperr.Persistence(err)
}

// Recovery turns a panic into a logged 500.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.String("panic", fmt.Sprint(recovered)),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", GetRequestID(c)),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong on the server."})
	})
}
