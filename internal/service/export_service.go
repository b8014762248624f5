package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	pkgerrors "req-pool/pkg/errors"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = pkgerrors.New(pkgerrors.KindInternal, 16101, "生成 Excel 文件失败")

// UserTemplateHeaders 用户导入模板表头，与导入时识别的列一致
var UserTemplateHeaders = []string{"用户名", "密码", "角色", "姓名", "手机号", "邮箱", "部门"}

var requirementExportHeaders = []string{"需求编号", "需求描述", "需求提出人", "需求部门", "提出日期", "需求状态", "所属项目", "项目状态"}

// ExportService 导出业务接口
// 结果以 bytes.Buffer 返回，由 Handler 设置响应头后写出
type ExportService interface {
	// UserTemplate 生成用户导入模板
	UserTemplate(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportRequirements 按列表筛选条件导出需求
	ExportRequirements(ctx context.Context, req *dto.RequirementListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) UserTemplate(ctx context.Context) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "用户导入模板"
	if err := s.prepareSheet(f, sheet, UserTemplateHeaders, 16); err != nil {
		return nil, "", err
	}

	// 示例行
	sample := []any{"zhangsan", "Rq123456", model.RoleDeveloper.Label(), "张三", "13800000000", "zhangsan@example.com", "研发部"}
	if err := f.SetSheetRow(sheet, "A2", &sample); err != nil {
		s.logger.Error("写入模板示例行失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	buf, err := s.write(f)
	if err != nil {
		return nil, "", err
	}
	return buf, "用户导入模板.xlsx", nil
}

func (s *exportService) ExportRequirements(ctx context.Context, req *dto.RequirementListRequest) (*bytes.Buffer, string, error) {
	filter, err := requirementFilter(req)
	if err != nil {
		return nil, "", err
	}
	reqs, err := s.repo.Requirement.ListAll(ctx, filter)
	if err != nil {
		s.logger.Error("查询导出需求失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "需求列表"
	if err := s.prepareSheet(f, sheet, requirementExportHeaders, 18); err != nil {
		return nil, "", err
	}
	f.SetColWidth(sheet, "B", "B", 48)

	for i := range reqs {
		r := &reqs[i]
		projectID, projectStatus := "", ""
		if r.ProjectID != nil {
			projectID = *r.ProjectID
		}
		if r.ProjectStatus != nil {
			projectStatus = r.ProjectStatus.Label()
		}
		row := []any{
			r.Code, r.Description, r.Requestor, r.Department,
			r.RequestDate.Format(dto.DateLayout), r.Status.Label(),
			projectID, projectStatus,
		}
		cellName, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cellName, &row); err != nil {
			s.logger.Error("写入需求行失败", zap.Int("row", i+2), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf, err := s.write(f)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("导出需求", zap.Int("count", len(reqs)))
	return buf, fmt.Sprintf("需求列表_%s.xlsx", time.Now().Format("20060102")), nil
}

// prepareSheet 用指定名称替换默认 Sheet1 并写入加粗表头
func (s *exportService) prepareSheet(f *excelize.File, sheet string, headers []string, width float64) error {
	idx, err := f.NewSheet(sheet)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	last, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheet, "A", last, width)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		s.logger.Error("写入表头失败", zap.Error(err))
		return ErrExportGenerateFail
	}
	f.SetCellStyle(sheet, "A1", last+"1", headerStyle)
	return nil
}

func (s *exportService) write(f *excelize.File) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}
