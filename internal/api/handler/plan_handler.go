package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/service"
	pkgerrors "github.com/ViableSystemsGlobal/poolcare-sub003/pkg/errors"
	"github.com/ViableSystemsGlobal/poolcare-sub003/pkg/response"
)

// PlanHandler 养护计划模块 HTTP 处理器
type PlanHandler struct {
	planSvc     service.PlanService
	calendarSvc service.CalendarService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService, calendarSvc service.CalendarService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc, calendarSvc: calendarSvc}
}

// CreatePlan 创建养护计划
// POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.Create(c.Request.Context(), &req, callerID(c))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.Created(c, plan)
}

// ListPlans 获取计划列表
// GET /api/v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var req dto.ListPlansRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plans, total, err := h.planSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OKPage(c, plans, total, req.GetPage(), req.GetPageSize())
}

// GetPlan 获取计划详情
// GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	plan, err := h.planSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// UpdatePlan 更新计划
// PUT /api/v1/plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.Update(c.Request.Context(), id, &req, callerID(c))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// DeletePlan 删除计划（软删除）
// DELETE /api/v1/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	if err := h.planSvc.Delete(c.Request.Context(), id, callerID(c)); err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 生命周期转移 ──

// PausePlan 暂停计划
// POST /api/v1/plans/:id/pause
func (h *PlanHandler) PausePlan(c *gin.Context) {
	h.transition(c, h.planSvc.Pause)
}

// ResumePlan 恢复计划
// POST /api/v1/plans/:id/resume
func (h *PlanHandler) ResumePlan(c *gin.Context) {
	h.transition(c, h.planSvc.Resume)
}

// SkipNext 跳过下一次服务
// POST /api/v1/plans/:id/skip-next
func (h *PlanHandler) SkipNext(c *gin.Context) {
	h.transition(c, h.planSvc.SkipNext)
}

// CancelPlan 取消计划（终态）
// POST /api/v1/plans/:id/cancel
func (h *PlanHandler) CancelPlan(c *gin.Context) {
	h.transition(c, h.planSvc.Cancel)
}

// transition 生命周期转移的公共骨架：取 ID、调服务、统一错误映射
func (h *PlanHandler) transition(c *gin.Context, fn func(ctx context.Context, id, caller string) (*dto.PlanResponse, error)) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	plan, err := fn(c.Request.Context(), id, callerID(c))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, plan)
}

// ── 时间窗覆盖 ──

// SetWindowOverride 设置单日时间窗覆盖
// PUT /api/v1/plans/:id/window-overrides
func (h *PlanHandler) SetWindowOverride(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	var req dto.SetWindowOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	override, err := h.planSvc.SetWindowOverride(c.Request.Context(), id, &req, callerID(c))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, override)
}

// RemoveWindowOverride 删除单日时间窗覆盖
// DELETE /api/v1/plans/:id/window-overrides/:date
func (h *PlanHandler) RemoveWindowOverride(c *gin.Context) {
	id := c.Param("id")
	date := c.Param("date")
	if id == "" || date == "" {
		response.BadRequest(c, 10001, "计划ID与日期不能为空")
		return
	}

	if err := h.planSvc.RemoveWindowOverride(c.Request.Context(), id, date); err != nil {
		h.handlePlanError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 日历订阅 ──

// PlanCalendar 计划的 iCalendar 订阅
// GET /api/v1/plans/:id/calendar.ics
func (h *PlanHandler) PlanCalendar(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "计划ID不能为空")
		return
	}

	feed, err := h.calendarSvc.PlanFeed(c.Request.Context(), id)
	if err != nil {
		h.handlePlanError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="plan.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

// handlePlanError 统一处理养护计划模块业务错误
func (h *PlanHandler) handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 20001, "养护计划不存在")
	case errors.Is(err, service.ErrUnsupportedFrequency):
		response.BadRequest(c, 20002, "不支持的频率节奏")
	case errors.Is(err, service.ErrAnchorWeekdaysRequired):
		response.BadRequest(c, 20003, "该频率需要有效的锚定星期")
	case errors.Is(err, service.ErrAnchorDayOfMonthRequired):
		response.BadRequest(c, 20004, "该频率需要锚定月内日")
	case errors.Is(err, service.ErrInvalidAnchorDayOfMonth):
		response.BadRequest(c, 20005, "锚定月内日必须在 1-28 之间或为 -1")
	case errors.Is(err, service.ErrInvalidWindow):
		response.BadRequest(c, 20006, "时间窗非法")
	case errors.Is(err, service.ErrInvalidDateFormat):
		response.BadRequest(c, 20007, "日期格式非法，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrPlanCancelled):
		response.Conflict(c, 20008, "计划已取消，不接受任何变更")
	case errors.Is(err, service.ErrPlanNotPausable):
		response.Conflict(c, 20009, "仅生效中的计划可暂停")
	case errors.Is(err, service.ErrPlanNotPaused):
		response.Conflict(c, 20010, "仅已暂停的计划可恢复")
	case errors.Is(err, service.ErrPlanNotActive):
		response.Conflict(c, 20011, "计划未激活")
	case errors.Is(err, service.ErrOverrideNotFound):
		response.NotFound(c, 20012, "时间窗覆盖不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20013, "计划已被其他操作修改，请重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/plan_handler.go
