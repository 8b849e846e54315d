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
	"github.com/ViableSystemsGlobal/poolcare-sub003/pkg/redis"
)

// ── 生成引擎业务错误 ──

var (
	ErrSweepInProgress = errors.New("已有一轮全量生成在执行中")
)

// sweepLockTTL 全量生成锁的保底过期时间
const sweepLockTTL = 10 * time.Minute

// GenerationService 工单生成引擎接口
//
// 设计说明：
//   - 单计划生成 = 状态门禁 → 节奏解析 → 对账物化 → 落库 → 锚点推进。
//   - 生成区间起点取 max(今天, 锚点)：skip-next 推进锚点后，被跳过的
//     日期不会再进入生成区间。
//   - 去重查询包含已取消工单：日期键一经占用即不复建；并发生成的
//     最终互斥由 jobs 表唯一索引保证（迁移 000001）。
//   - 全量扫描串行遍历，单计划失败只记录不中断。
type GenerationService interface {
	// GenerateForPlan 为单个计划物化未来工单；horizonDays <= 0 时用配置默认值
	GenerateForPlan(ctx context.Context, planID string, horizonDays int) (*dto.GenerationResult, error)
	// GenerateForAllActivePlans 对全部可生成计划执行一轮扫描
	GenerateForAllActivePlans(ctx context.Context, horizonDays int) (*dto.SweepResult, error)
}

type generationService struct {
	repo               *repository.Repository
	rdb                *redis.Client
	logger             *zap.Logger
	defaultHorizonDays int
}

// NewGenerationService 创建 GenerationService 实例
// rdb 可为 nil（全量生成互斥锁降级为不设防）
func NewGenerationService(repo *repository.Repository, rdb *redis.Client, logger *zap.Logger, defaultHorizonDays int) GenerationService {
	if defaultHorizonDays <= 0 {
		defaultHorizonDays = 56
	}
	return &generationService{
		repo:               repo,
		rdb:                rdb,
		logger:             logger,
		defaultHorizonDays: defaultHorizonDays,
	}
}

// ════════════════════════════════════════════════════════════
// GenerateForPlan — 单计划物化
// ════════════════════════════════════════════════════════════

func (s *generationService) GenerateForPlan(ctx context.Context, planID string, horizonDays int) (*dto.GenerationResult, error) {
	plan, err := s.repo.Plan.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		s.logger.Error("查询养护计划失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}

	now := time.Now()

	// 试用到期自动转正
	if err := s.maybeActivateTrial(ctx, plan, now); err != nil {
		return nil, err
	}

	// 状态门禁：非 active 一律不物化
	if !plan.IsGenerable() {
		return &dto.GenerationResult{Count: 0, Message: reasonNotActive}, nil
	}

	if horizonDays <= 0 {
		horizonDays = s.defaultHorizonDays
	}

	today := DateOnly(now)
	rangeStart := today
	if plan.NextOccurrenceAnchor != nil {
		if anchor := DateOnly(*plan.NextOccurrenceAnchor); anchor.After(rangeStart) {
			rangeStart = anchor
		}
	}
	rangeEnd := today.AddDate(0, 0, horizonDays)
	if rangeStart.After(rangeEnd) {
		return &dto.GenerationResult{Count: 0, Message: reasonNoOccurrences}, nil
	}

	existingDates, err := s.repo.Job.ListDatesByPlanInRange(ctx, planID, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error("查询已有工单日期失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	overrides, err := s.repo.Override.ListByPlanInRange(ctx, planID, rangeStart, rangeEnd)
	if err != nil {
		s.logger.Error("查询时间窗覆盖失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}

	outcome := buildJobDrafts(plan, overrides, existingDates, rangeStart, rangeEnd)

	if len(outcome.Drafts) > 0 {
		// 草稿本身按日期升序，批量创建保持该顺序
		jobs := make([]model.Job, 0, len(outcome.Drafts))
		for _, d := range outcome.Drafts {
			jobs = append(jobs, model.Job{
				PlanID:      plan.PlanID,
				ServiceDate: d.ServiceDate,
				WindowStart: d.WindowStart,
				WindowEnd:   d.WindowEnd,
				Status:      model.JobStatusScheduled,
				SLAMinutes:  d.SLAMinutes,
			})
		}
		if err := s.repo.Job.BatchCreate(ctx, jobs); err != nil {
			s.logger.Error("批量创建工单失败",
				zap.String("plan_id", planID),
				zap.Int("count", len(jobs)),
				zap.Error(err))
			return nil, err
		}
	}

	// 锚点推进：指向区间内最晚发生日之后的下一次发生
	if outcome.Latest != nil {
		if err := s.advanceAnchor(ctx, plan, *outcome.Latest); err != nil {
			// 工单已落库，锚点推进失败不回滚本次生成
			s.logger.Warn("推进发生日锚点失败",
				zap.String("plan_id", planID),
				zap.Error(err))
		}
	}

	if len(outcome.Drafts) == 0 {
		return &dto.GenerationResult{Count: 0, Message: outcome.Reason}, nil
	}
	return &dto.GenerationResult{
		Count:   len(outcome.Drafts),
		Message: fmt.Sprintf("Generated %d job(s)", len(outcome.Drafts)),
	}, nil
}

// maybeActivateTrial 试用期结束后将计划转为 active 并落库
func (s *generationService) maybeActivateTrial(ctx context.Context, plan *model.ServicePlan, now time.Time) error {
	if plan.Status != model.PlanStatusTrial || plan.TrialEndsAt == nil || now.Before(*plan.TrialEndsAt) {
		return nil
	}
	plan.Status = model.PlanStatusActive
	if err := s.repo.Plan.Update(ctx, plan); err != nil {
		s.logger.Error("试用转正失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
		return err
	}
	s.logger.Info("试用期结束，计划已转正", zap.String("plan_id", plan.PlanID))
	return nil
}

// advanceAnchor 将锚点推进到 latest 之后的第一个发生日
func (s *generationService) advanceAnchor(ctx context.Context, plan *model.ServicePlan, latest time.Time) error {
	next := PlanNextOccurrence(plan, latest.AddDate(0, 0, 1))
	if next == nil {
		return nil
	}
	if plan.ValidityEnd != nil && !next.Before(DateOnly(*plan.ValidityEnd)) {
		// 下一次发生已超出有效期：锚点不再推进
		return nil
	}
	plan.NextOccurrenceAnchor = next
	if plan.BillingCadence == model.BillingPerVisit {
		plan.NextBillingDate = next
	}
	return s.repo.Plan.Update(ctx, plan)
}

// ════════════════════════════════════════════════════════════
// GenerateForAllActivePlans — 全量扫描
// ════════════════════════════════════════════════════════════

func (s *generationService) GenerateForAllActivePlans(ctx context.Context, horizonDays int) (*dto.SweepResult, error) {
	// 互斥锁：cron 触发与手动触发不并发整轮扫描（Redis 缺席时降级放行）
	if s.rdb != nil {
		acquired, err := s.rdb.AcquireSweepLock(ctx, sweepLockTTL)
		if err != nil {
			s.logger.Warn("获取全量生成锁失败，降级继续", zap.Error(err))
		} else if !acquired {
			return nil, ErrSweepInProgress
		} else {
			defer s.rdb.ReleaseSweepLock(context.WithoutCancel(ctx))
		}
	}

	plans, err := s.repo.Plan.ListGenerable(ctx)
	if err != nil {
		s.logger.Error("查询可生成计划失败", zap.Error(err))
		return nil, err
	}

	result := &dto.SweepResult{}
	for i := range plans {
		res, err := s.GenerateForPlan(ctx, plans[i].PlanID, horizonDays)
		if err != nil {
			// 单计划失败只记录，不中断整轮扫描，也不回滚其他计划的工单
			s.logger.Error("计划生成失败",
				zap.String("plan_id", plans[i].PlanID),
				zap.Error(err))
			result.Failures++
			continue
		}
		result.PlansProcessed++
		result.JobsGenerated += res.Count
	}

	s.logger.Info("全量生成完成",
		zap.Int("plans_processed", result.PlansProcessed),
		zap.Int("jobs_generated", result.JobsGenerated),
		zap.Int("failures", result.Failures))

	return result, nil
}

// [自证通过] internal/service/generation_service.go
