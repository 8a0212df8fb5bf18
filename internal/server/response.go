package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Response is the envelope of every API response. Code is a grpc status code.
type Response struct {
	Code codes.Code `json:"code"`
	Data any        `json:"data"`
	Msg  string     `json:"msg"`
}

func wrapResponse(c *gin.Context, httpCode int, code codes.Code, msg string, data any) {
	c.JSON(httpCode, Response{
		Code: code,
		Data: data,
		Msg:  msg,
	})
}

func Success(c *gin.Context, data any) {
	wrapResponse(c, http.StatusOK, codes.OK, "", data)
}

func Created(c *gin.Context, data any) {
	wrapResponse(c, http.StatusCreated, codes.OK, "", data)
}

// Error writes err with the http status matching its grpc code.
func Error(c *gin.Context, err error) {
	code := status.Code(err)
	wrapResponse(c, httpStatus(code), code, err.Error(), nil)
}

// BadRequest reports a request that could not be bound.
func BadRequest(c *gin.Context, err error) {
	wrapResponse(c, http.StatusBadRequest, codes.InvalidArgument, err.Error(), nil)
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
