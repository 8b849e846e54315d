package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/model"
	"github.com/ViableSystemsGlobal/poolcare-sub003/internal/repository"
)

func setupTestExportService() (ExportService, *mockJobRepo) {
	jobRepo := newMockJobRepo()
	repo := &repository.Repository{
		Plan:     newMockPlanRepo(),
		Job:      jobRepo,
		Override: newMockOverrideRepo(),
	}
	svc := NewExportService(repo, zap.NewNop())
	return svc, jobRepo
}

func TestExportService_ExportJobs(t *testing.T) {
	svc, jobRepo := setupTestExportService()

	plan := &model.ServicePlan{PlanID: "plan-001", CustomerRef: "cust-001", Name: "周三养护"}
	jobRepo.jobs["job-001"] = &model.Job{
		JobID:       "job-001",
		PlanID:      "plan-001",
		ServiceDate: d(2026, 9, 2),
		WindowStart: time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC),
		Status:      model.JobStatusScheduled,
		SLAMinutes:  180,
		Plan:        plan,
	}
	jobRepo.jobs["job-002"] = &model.Job{
		JobID:       "job-002",
		PlanID:      "plan-001",
		ServiceDate: d(2026, 9, 9),
		WindowStart: time.Date(2026, 9, 9, 9, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 9, 9, 11, 0, 0, 0, time.UTC),
		Status:      model.JobStatusScheduled,
		SLAMinutes:  180,
		Plan:        plan,
	}
	// 区间外：不应导出
	jobRepo.jobs["job-003"] = &model.Job{
		JobID:       "job-003",
		PlanID:      "plan-001",
		ServiceDate: d(2026, 10, 1),
		Status:      model.JobStatusScheduled,
	}

	buf, filename, err := svc.ExportJobs(context.Background(), d(2026, 9, 1), d(2026, 9, 30))
	if err != nil {
		t.Fatalf("ExportJobs 应成功: %v", err)
	}
	if !strings.HasPrefix(filename, "jobs_20260901_20260930") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("工单排期")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 表头 + 2条数据
	if len(rows) != 3 {
		t.Fatalf("期望3行，实际=%d", len(rows))
	}
	if rows[0][0] != "服务日期" {
		t.Errorf("期望表头首列=服务日期，实际=%s", rows[0][0])
	}
	if rows[1][0] != "2026-09-02" || rows[1][1] != "cust-001" || rows[1][2] != "周三养护" {
		t.Errorf("数据行不符: %v", rows[1])
	}
}

func TestExportService_ExportJobs_Empty(t *testing.T) {
	svc, _ := setupTestExportService()

	buf, _, err := svc.ExportJobs(context.Background(), d(2026, 9, 1), d(2026, 9, 30))
	if err != nil {
		t.Fatalf("空区间导出应成功: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("工单排期")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("空区间期望仅表头1行，实际=%d", len(rows))
	}
}
