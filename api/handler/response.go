package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"substore/internal/apperrors"
)

// ok 成功响应
func ok(c *gin.Context, data gin.H) {
	resp := gin.H{
		"result":      "success",
		"status_code": http.StatusOK,
	}
	for key, value := range data {
		resp[key] = value
	}
	c.JSON(http.StatusOK, resp)
}

// fail 失败响应
func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"result":      "fail",
		"status_code": code,
		"status_msg":  msg,
	})
}

// failErr 按错误类型映射HTTP状态码
func failErr(c *gin.Context, err error) {
	var validationErr *apperrors.ValidationError
	var networkErr *apperrors.NetworkError
	var syncErr *apperrors.SyncError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &validationErr):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &networkErr), errors.As(err, &syncErr):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
