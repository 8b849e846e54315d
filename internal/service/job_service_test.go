package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/dto"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/repository"
)

func setupTestJobService() (JobService, *mockJobRepo) {
	jobRepo := newMockJobRepo()
	repo := &repository.Repository{
		Plan:     newMockPlanRepo(),
		Job:      jobRepo,
		Override: newMockOverrideRepo(),
	}
	svc := NewJobService(repo, zap.NewNop())
	return svc, jobRepo
}

func seedJob(jobRepo *mockJobRepo, id, planID, status string, date time.Time) {
	jobRepo.jobs[id] = &model.Job{
		JobID:       id,
		PlanID:      planID,
		ServiceDate: date,
		WindowStart: time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(date.Year(), date.Month(), date.Day(), 11, 0, 0, 0, time.UTC),
		Status:      status,
		SLAMinutes:  180,
	}
}

func TestJobService_GetByID(t *testing.T) {
	svc, jobRepo := setupTestJobService()
	seedJob(jobRepo, "job-001", "plan-001", model.JobStatusScheduled, d(2026, 9, 2))

	job, err := svc.GetByID(context.Background(), "job-001")
	if err != nil {
		t.Fatalf("GetByID 应成功: %v", err)
	}
	if job.ServiceDate != "2026-09-02" {
		t.Errorf("期望服务日=2026-09-02，实际=%s", job.ServiceDate)
	}

	if _, err := svc.GetByID(context.Background(), "nonexistent"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("期望 ErrJobNotFound，实际: %v", err)
	}
}

func TestJobService_List_Filters(t *testing.T) {
	svc, jobRepo := setupTestJobService()
	seedJob(jobRepo, "job-001", "plan-001", model.JobStatusScheduled, d(2026, 9, 2))
	seedJob(jobRepo, "job-002", "plan-001", model.JobStatusCompleted, d(2026, 9, 9))
	seedJob(jobRepo, "job-003", "plan-002", model.JobStatusScheduled, d(2026, 9, 16))

	req := &dto.ListJobsRequest{PlanID: "plan-001"}
	jobs, total, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(jobs) != 2 {
		t.Errorf("按计划过滤期望2条，实际 total=%d len=%d", total, len(jobs))
	}

	req = &dto.ListJobsRequest{Status: model.JobStatusScheduled}
	jobs, total, err = svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 {
		t.Errorf("按状态过滤期望2条，实际=%d", total)
	}
	// 升序返回
	if len(jobs) == 2 && jobs[0].ServiceDate > jobs[1].ServiceDate {
		t.Error("工单列表应按服务日升序")
	}

	req = &dto.ListJobsRequest{From: "2026-09-05", To: "2026-09-20"}
	_, total, err = svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 {
		t.Errorf("按日期区间过滤期望2条，实际=%d", total)
	}

	req = &dto.ListJobsRequest{From: "bad-date"}
	if _, _, err := svc.List(context.Background(), req); !errors.Is(err, ErrInvalidDateFormat) {
		t.Errorf("期望 ErrInvalidDateFormat，实际: %v", err)
	}
}

func TestJobService_Cancel(t *testing.T) {
	svc, jobRepo := setupTestJobService()
	seedJob(jobRepo, "job-001", "plan-001", model.JobStatusScheduled, d(2026, 9, 2))

	job, err := svc.Cancel(context.Background(), "job-001", "admin-001")
	if err != nil {
		t.Fatalf("Cancel 应成功: %v", err)
	}
	if job.Status != model.JobStatusCancelled {
		t.Errorf("期望status=cancelled，实际=%s", job.Status)
	}
}

func TestJobService_Cancel_NotCancelable(t *testing.T) {
	svc, jobRepo := setupTestJobService()
	seedJob(jobRepo, "job-001", "plan-001", model.JobStatusCompleted, d(2026, 9, 2))
	seedJob(jobRepo, "job-002", "plan-001", model.JobStatusInProgress, d(2026, 9, 9))

	if _, err := svc.Cancel(context.Background(), "job-001", "admin-001"); !errors.Is(err, ErrJobNotCancelable) {
		t.Errorf("completed 期望 ErrJobNotCancelable，实际: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "job-002", "admin-001"); !errors.Is(err, ErrJobNotCancelable) {
		t.Errorf("in_progress 期望 ErrJobNotCancelable，实际: %v", err)
	}
}
