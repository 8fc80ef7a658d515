package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vipcxj/dash.go/errors"
)

const (
	HEADER_REQUEST_ID = "X-Request-Id"
	CTX_REQUEST_ID    = "requestId"
)

func Cors(cors string) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", cors)
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Request-Id")
			c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type, X-Request-Id, X-Cache")
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
		}
		c.Next()
	}
}

// RequestID reuses the caller's X-Request-Id or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get(HEADER_REQUEST_ID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CTX_REQUEST_ID, id)
		c.Header(HEADER_REQUEST_ID, id)
		c.Next()
	}
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(CTX_REQUEST_ID)
}

func StatusOf(err *errors.DashError) int {
	switch {
	case err.Code == errors.ERR_MANIFEST_PARSE:
		return http.StatusUnprocessableEntity
	case err.Code > 600 || err.Code < 100:
		return http.StatusInternalServerError
	default:
		return err.Code
	}
}

// ErrorHandler turns a panic into a json error body. A *errors.DashError
// keeps its code.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		if myErr, ok := err.(*errors.DashError); ok {
			c.JSON(StatusOf(myErr), gin.H{
				"code": myErr.Code,
				"msg":  myErr.Msg,
				"data": myErr.Data,
			})
		} else {
			var msg string
			if myErr, ok := err.(error); ok {
				msg = myErr.Error()
			} else if myErr, ok := err.(string); ok {
				msg = myErr
			} else {
				msg = ""
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code": http.StatusInternalServerError,
				"msg":  msg,
				"data": nil,
			})
		}
	})
}
