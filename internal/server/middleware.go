package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
)

// RequestTime logs how long each request took.
func RequestTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqTime := time.Since(start)
		logrus.Infof("request time: %v %v: %v", c.Request.Method, c.FullPath(), reqTime)
	}
}

// Recovery turns a panic in a handler into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.Errorf("panic serving %v %v: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{Code: codes.Internal, Msg: "internal error"})
	})
}
