package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func OK(c *gin.Context, data any) {
	Respond(c, http.StatusOK, "ok", data)
}

func Created(c *gin.Context, msg string, data any) {
	Respond(c, http.StatusCreated, msg, data)
}

func Respond(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": msg,
		"data":    data,
	})
}

func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}

// Abort is Fail for middleware: it also stops the handler chain.
func Abort(c *gin.Context, httpStatus int, code int, msg string) {
	Fail(c, httpStatus, code, msg)
	c.Abort()
}
