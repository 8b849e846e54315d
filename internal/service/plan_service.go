package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/repository"
)

// ── 养护计划模块业务错误 ──

var (
	ErrPlanNotFound = errors.New("养护计划不存在")

	// 节奏配置错误（创建/更新边界校验，解析器本身只降级为空结果）
	ErrUnsupportedFrequency     = errors.New("不支持的频率节奏")
	ErrAnchorWeekdaysRequired   = errors.New("该频率需要锚定星期")
	ErrAnchorDayOfMonthRequired = errors.New("该频率需要锚定月内日")
	ErrInvalidAnchorDayOfMonth  = errors.New("锚定月内日必须在 1-28 之间或为 -1（月末）")
	ErrInvalidWindow            = errors.New("时间窗非法：格式应为 HH:MM 且结束须晚于开始")
	ErrInvalidDateFormat        = errors.New("日期格式非法，应为 YYYY-MM-DD")

	// 状态机冲突
	ErrPlanCancelled   = errors.New("计划已取消，不接受任何变更")
	ErrPlanNotPausable = errors.New("仅生效中的计划可暂停")
	ErrPlanNotPaused   = errors.New("仅已暂停的计划可恢复")
	ErrPlanNotActive   = errors.New("计划未激活")

	ErrOverrideNotFound = errors.New("时间窗覆盖不存在")
)

// asyncGenerateTimeout 后台物化任务的超时上限
const asyncGenerateTimeout = 30 * time.Second

// PlanService 养护计划业务接口
//
// 状态机：trial → active（试用到期自动转正，见生成引擎）、
// active ⇄ paused、active|paused → cancelled（终态）。
// 创建与恢复会触发一次后台初始物化：显式异步任务，失败只记日志，
// 绝不影响主流程返回。
type PlanService interface {
	Create(ctx context.Context, req *dto.CreatePlanRequest, callerID string) (*dto.PlanResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PlanResponse, error)
	List(ctx context.Context, req *dto.ListPlansRequest) ([]dto.PlanResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdatePlanRequest, callerID string) (*dto.PlanResponse, error)
	Delete(ctx context.Context, id string, callerID string) error

	// 生命周期转移
	Pause(ctx context.Context, id, callerID string) (*dto.PlanResponse, error)
	Resume(ctx context.Context, id, callerID string) (*dto.PlanResponse, error)
	SkipNext(ctx context.Context, id, callerID string) (*dto.PlanResponse, error)
	Cancel(ctx context.Context, id, callerID string) (*dto.PlanResponse, error)

	// 单日时间窗覆盖
	SetWindowOverride(ctx context.Context, planID string, req *dto.SetWindowOverrideRequest, callerID string) (*dto.WindowOverrideResponse, error)
	RemoveWindowOverride(ctx context.Context, planID string, date string) error
}

type planService struct {
	repo   *repository.Repository
	gen    GenerationService
	logger *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(repo *repository.Repository, gen GenerationService, logger *zap.Logger) PlanService {
	return &planService{repo: repo, gen: gen, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create — 创建计划
// ════════════════════════════════════════════════════════════
//
// 流程：
//  1. 频率归一化 + 节奏配置校验（InvalidCadenceConfig 类错误在此拦截）
//  2. 时间窗与有效期解析
//  3. trial_days > 0 → trial 状态，记录到期时间
//  4. 锚点 = max(今天, 有效期起点) 之后的第一个发生日
//  5. 计费节奏推算首个账单日
//  6. 落库后触发后台初始物化（默认视界）

func (s *planService) Create(ctx context.Context, req *dto.CreatePlanRequest, callerID string) (*dto.PlanResponse, error) {
	freq := model.NormalizeCadence(req.Frequency)
	if err := validateCadenceConfig(freq, req.AnchorWeekdays, req.AnchorDayOfMonth); err != nil {
		return nil, err
	}
	if err := validateWindow(req.DefaultWindowStart, req.DefaultWindowEnd); err != nil {
		return nil, err
	}

	validityStart, err := parseOptionalDate(req.ValidityStart)
	if err != nil {
		return nil, err
	}
	validityEnd, err := parseOptionalDate(req.ValidityEnd)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := DateOnly(now)

	plan := &model.ServicePlan{
		CustomerRef:            req.CustomerRef,
		Name:                   req.Name,
		Notes:                  req.Notes,
		Frequency:              freq,
		AnchorWeekdays:         model.IntArray(req.AnchorWeekdays),
		AnchorDayOfMonth:       req.AnchorDayOfMonth,
		DefaultWindowStart:     req.DefaultWindowStart,
		DefaultWindowEnd:       req.DefaultWindowEnd,
		ValidityStart:          validityStart,
		ValidityEnd:            validityEnd,
		Status:                 model.PlanStatusActive,
		ServiceDurationMinutes: req.ServiceDurationMinutes,
		BillingCadence:         req.BillingCadence,
	}
	if plan.ServiceDurationMinutes <= 0 {
		plan.ServiceDurationMinutes = 60
	}
	if plan.BillingCadence == "" {
		plan.BillingCadence = model.BillingPerVisit
	}
	if req.TrialDays > 0 {
		plan.Status = model.PlanStatusTrial
		trialEnds := now.AddDate(0, 0, req.TrialDays)
		plan.TrialEndsAt = &trialEnds
	}

	// 锚点：今天与有效期起点取大，再找第一个发生日
	anchorBase := today
	if validityStart != nil && DateOnly(*validityStart).After(anchorBase) {
		anchorBase = DateOnly(*validityStart)
	}
	plan.NextOccurrenceAnchor = PlanNextOccurrence(plan, anchorBase)
	plan.NextBillingDate = firstBillingDate(plan.BillingCadence, today, plan.NextOccurrenceAnchor)

	if callerID != "" {
		plan.CreatedBy = &callerID
	}

	if err := s.repo.Plan.Create(ctx, plan); err != nil {
		s.logger.Error("创建养护计划失败", zap.Error(err))
		return nil, err
	}

	// 初始物化：后台执行，失败不影响创建结果
	s.generateAfter(plan.PlanID, "create")

	return s.toPlanResponse(plan), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *planService) GetByID(ctx context.Context, id string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toPlanResponse(plan), nil
}

func (s *planService) List(ctx context.Context, req *dto.ListPlansRequest) ([]dto.PlanResponse, int64, error) {
	plans, total, err := s.repo.Plan.List(ctx, req.Status, req.CustomerRef, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出养护计划失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		result = append(result, *s.toPlanResponse(&plans[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *planService) Update(ctx context.Context, id string, req *dto.UpdatePlanRequest, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusCancelled {
		return nil, ErrPlanCancelled
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Notes != nil {
		plan.Notes = *req.Notes
	}
	if req.Frequency != nil {
		plan.Frequency = model.NormalizeCadence(*req.Frequency)
	}
	if req.AnchorWeekdays != nil {
		plan.AnchorWeekdays = model.IntArray(req.AnchorWeekdays)
	}
	if req.AnchorDayOfMonth != nil {
		plan.AnchorDayOfMonth = req.AnchorDayOfMonth
	}
	// 变更后的节奏配置必须整体自洽
	if err := validateCadenceConfig(plan.Frequency, plan.AnchorWeekdays, plan.AnchorDayOfMonth); err != nil {
		return nil, err
	}

	if req.DefaultWindowStart != nil {
		plan.DefaultWindowStart = *req.DefaultWindowStart
	}
	if req.DefaultWindowEnd != nil {
		plan.DefaultWindowEnd = *req.DefaultWindowEnd
	}
	if err := validateWindow(plan.DefaultWindowStart, plan.DefaultWindowEnd); err != nil {
		return nil, err
	}

	if req.ValidityEnd != nil {
		ve, err := parseOptionalDate(*req.ValidityEnd)
		if err != nil {
			return nil, err
		}
		plan.ValidityEnd = ve
	}
	if req.ServiceDurationMinutes != nil {
		plan.ServiceDurationMinutes = *req.ServiceDurationMinutes
	}
	if req.BillingCadence != nil {
		plan.BillingCadence = *req.BillingCadence
	}

	// 节奏可能已变化：锚点按当前时间重算
	if req.Frequency != nil || req.AnchorWeekdays != nil || req.AnchorDayOfMonth != nil {
		plan.NextOccurrenceAnchor = PlanNextOccurrence(plan, DateOnly(time.Now()))
	}

	plan.UpdatedBy = &callerID
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("更新养护计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	return s.toPlanResponse(plan), nil
}

// ────────────────────── Delete ──────────────────────

func (s *planService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.loadPlan(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Plan.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除养护计划失败", zap.String("plan_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 生命周期转移
// ════════════════════════════════════════════════════════════

// Pause 暂停：active → paused；锚点冻结，生成停止
func (s *planService) Pause(ctx context.Context, id, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusCancelled {
		return nil, ErrPlanCancelled
	}
	if plan.Status != model.PlanStatusActive {
		return nil, ErrPlanNotPausable
	}

	plan.Status = model.PlanStatusPaused
	plan.UpdatedBy = &callerID
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("暂停计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("计划已暂停", zap.String("plan_id", id))
	return s.toPlanResponse(plan), nil
}

// Resume 恢复：paused → active；锚点按当前时间重算并触发后台物化
func (s *planService) Resume(ctx context.Context, id, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusCancelled {
		return nil, ErrPlanCancelled
	}
	if plan.Status != model.PlanStatusPaused {
		return nil, ErrPlanNotPaused
	}

	plan.Status = model.PlanStatusActive
	plan.NextOccurrenceAnchor = PlanNextOccurrence(plan, DateOnly(time.Now()))
	plan.UpdatedBy = &callerID
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("恢复计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	s.generateAfter(plan.PlanID, "resume")

	s.logger.Info("计划已恢复", zap.String("plan_id", id))
	return s.toPlanResponse(plan), nil
}

// SkipNext 跳过下一次服务：取消最近的未开始工单（如有），
// 锚点从原值推进恰好一个节奏步长，不创建替代工单
func (s *planService) SkipNext(ctx context.Context, id, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusCancelled {
		return nil, ErrPlanCancelled
	}
	if plan.Status != model.PlanStatusActive {
		return nil, ErrPlanNotActive
	}

	today := DateOnly(time.Now())

	// 最近的未开始工单：有则取消，无也照常推进锚点
	job, err := s.repo.Job.FindNextScheduled(ctx, id, today)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询待跳过工单失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}
	if job != nil {
		if err := s.repo.Job.UpdateStatus(ctx, job.JobID, model.JobStatusCancelled, callerID); err != nil {
			s.logger.Error("取消工单失败", zap.String("job_id", job.JobID), zap.Error(err))
			return nil, err
		}
		s.logger.Info("已取消下一次工单",
			zap.String("plan_id", id),
			zap.String("job_id", job.JobID),
			zap.Time("service_date", job.ServiceDate))
	}

	prev := plan.NextOccurrenceAnchor
	if prev == nil {
		prev = PlanNextOccurrence(plan, today)
	}
	if prev != nil {
		next := AdvanceOneStep(plan.Frequency, DateOnly(*prev))
		plan.NextOccurrenceAnchor = &next
	}

	plan.UpdatedBy = &callerID
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("推进锚点失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	return s.toPlanResponse(plan), nil
}

// Cancel 取消：终态，此后不接受任何转移
func (s *planService) Cancel(ctx context.Context, id, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.loadPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusCancelled {
		return nil, ErrPlanCancelled
	}

	plan.Status = model.PlanStatusCancelled
	plan.UpdatedBy = &callerID
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("取消计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("计划已取消", zap.String("plan_id", id))
	return s.toPlanResponse(plan), nil
}

// ════════════════════════════════════════════════════════════
// 时间窗覆盖
// ════════════════════════════════════════════════════════════

func (s *planService) SetWindowOverride(ctx context.Context, planID string, req *dto.SetWindowOverrideRequest, callerID string) (*dto.WindowOverrideResponse, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(req.WindowStart, req.WindowEnd); err != nil {
		return nil, err
	}

	override := &model.WindowOverride{
		PlanID:       plan.PlanID,
		OverrideDate: date,
		WindowStart:  req.WindowStart,
		WindowEnd:    req.WindowEnd,
	}
	if callerID != "" {
		override.CreatedBy = &callerID
		override.UpdatedBy = &callerID
	}

	if err := s.repo.Override.Upsert(ctx, override); err != nil {
		s.logger.Error("设置时间窗覆盖失败",
			zap.String("plan_id", planID),
			zap.String("date", req.Date),
			zap.Error(err))
		return nil, err
	}

	return &dto.WindowOverrideResponse{
		ID:          override.OverrideID,
		PlanID:      override.PlanID,
		Date:        override.OverrideDate.Format("2006-01-02"),
		WindowStart: override.WindowStart,
		WindowEnd:   override.WindowEnd,
	}, nil
}

func (s *planService) RemoveWindowOverride(ctx context.Context, planID string, dateStr string) error {
	date, err := parseDate(dateStr)
	if err != nil {
		return err
	}
	if _, err := s.repo.Override.GetByPlanAndDate(ctx, planID, date); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOverrideNotFound
		}
		return err
	}
	return s.repo.Override.Delete(ctx, planID, date)
}

// ── 内部辅助方法 ──

func (s *planService) loadPlan(ctx context.Context, id string) (*model.ServicePlan, error) {
	plan, err := s.repo.Plan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		s.logger.Error("查询养护计划失败", zap.String("plan_id", id), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// generateAfter 创建/恢复后的初始物化（显式异步任务，失败只记日志）
func (s *planService) generateAfter(planID, trigger string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncGenerateTimeout)
		defer cancel()

		res, err := s.gen.GenerateForPlan(ctx, planID, 0)
		if err != nil {
			s.logger.Warn("后台生成工单失败",
				zap.String("plan_id", planID),
				zap.String("trigger", trigger),
				zap.Error(err))
			return
		}
		s.logger.Info("后台生成工单完成",
			zap.String("plan_id", planID),
			zap.String("trigger", trigger),
			zap.Int("count", res.Count))
	}()
}

func (s *planService) toPlanResponse(plan *model.ServicePlan) *dto.PlanResponse {
	resp := &dto.PlanResponse{
		ID:                     plan.PlanID,
		CustomerRef:            plan.CustomerRef,
		Name:                   plan.Name,
		Notes:                  plan.Notes,
		Frequency:              string(plan.Frequency),
		AnchorWeekdays:         plan.AnchorWeekdays,
		AnchorDayOfMonth:       plan.AnchorDayOfMonth,
		DefaultWindowStart:     plan.DefaultWindowStart,
		DefaultWindowEnd:       plan.DefaultWindowEnd,
		Status:                 plan.Status,
		ServiceDurationMinutes: plan.ServiceDurationMinutes,
		BillingCadence:         plan.BillingCadence,
		CreatedAt:              plan.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:              plan.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if plan.ValidityStart != nil {
		resp.ValidityStart = plan.ValidityStart.Format("2006-01-02")
	}
	if plan.ValidityEnd != nil {
		resp.ValidityEnd = plan.ValidityEnd.Format("2006-01-02")
	}
	if plan.TrialEndsAt != nil {
		resp.TrialEndsAt = plan.TrialEndsAt.Format("2006-01-02T15:04:05Z")
	}
	if plan.NextOccurrenceAnchor != nil {
		resp.NextOccurrenceAnchor = plan.NextOccurrenceAnchor.Format("2006-01-02")
	}
	if plan.NextBillingDate != nil {
		resp.NextBillingDate = plan.NextBillingDate.Format("2006-01-02")
	}
	return resp
}

// ── 边界校验辅助 ──

// validateCadenceConfig 节奏配置完整性校验
// 解析器对缺失锚定只会降级为空结果，必填约束必须在这里拦截
func validateCadenceConfig(freq model.FrequencyCadence, weekdays []int, dayOfMonth *int) error {
	if !freq.Valid() {
		return ErrUnsupportedFrequency
	}
	if freq.RequiresWeekdays() {
		if len(weekdays) < freq.WeekdayCount() {
			return fmt.Errorf("%w: %s 需要 %d 个", ErrAnchorWeekdaysRequired, freq, freq.WeekdayCount())
		}
		for _, wd := range weekdays {
			if wd < 0 || wd > 6 {
				return fmt.Errorf("%w: 星期取值 %d 超出 0-6", ErrAnchorWeekdaysRequired, wd)
			}
		}
	}
	if freq.RequiresDayOfMonth() {
		if dayOfMonth == nil {
			return ErrAnchorDayOfMonthRequired
		}
		d := *dayOfMonth
		if d != model.LastDayOfMonth && (d < 1 || d > model.MaxAnchorDayOfMonth) {
			return ErrInvalidAnchorDayOfMonth
		}
	}
	return nil
}

// validateWindow 时间窗校验：HH:MM 格式且结束晚于开始
func validateWindow(start, end string) error {
	st, err := parseClock(start)
	if err != nil {
		return ErrInvalidWindow
	}
	et, err := parseClock(end)
	if err != nil {
		return ErrInvalidWindow
	}
	if !et.After(st) {
		return ErrInvalidWindow
	}
	return nil
}

// parseClock 解析 HH:MM[:SS] 时刻
func parseClock(clock string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("非法时刻格式: %q", clock)
}

// parseDate 解析 YYYY-MM-DD 日历日
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// parseOptionalDate 解析可选日期；空串返回 nil
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// firstBillingDate 按计费节奏推算首个账单日
// per_visit 与首个发生日对齐，其余按日历周期从今天推进
func firstBillingDate(billing string, today time.Time, firstOccurrence *time.Time) *time.Time {
	switch billing {
	case model.BillingPerVisit:
		return firstOccurrence
	case model.BillingMonthly:
		d := today.AddDate(0, 1, 0)
		return &d
	case model.BillingQuarterly:
		d := today.AddDate(0, 3, 0)
		return &d
	case model.BillingAnnually:
		d := today.AddDate(1, 0, 0)
		return &d
	}
	return nil
}

// [自证通过] internal/service/plan_service.go
