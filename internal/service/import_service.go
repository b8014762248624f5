package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"req-pool/config"
	"req-pool/internal/dto"
	"req-pool/internal/model"
	"req-pool/internal/repository"
	pkgerrors "req-pool/pkg/errors"
	"req-pool/pkg/metrics"
)

// ── 导入模块业务错误 ──

var (
	ErrImportFileMissing   = pkgerrors.New(pkgerrors.KindValidation, 16001, "请上传文件")
	ErrImportBadFormat     = pkgerrors.New(pkgerrors.KindValidation, 16002, "仅支持 .csv 与 .xlsx 文件")
	ErrImportTooLarge      = pkgerrors.New(pkgerrors.KindValidation, 16003, "文件大小超过上限")
	ErrImportBadHeader     = pkgerrors.New(pkgerrors.KindValidation, 16004, "表头缺少必要列")
	ErrImportMissingField  = pkgerrors.New(pkgerrors.KindValidation, 16005, "数据行缺少必填字段")
	ErrImportNoData        = pkgerrors.New(pkgerrors.KindValidation, 16006, "文件无数据行（第一行为表头）")
	ErrImportTooManyRows   = pkgerrors.New(pkgerrors.KindValidation, 16007, "数据行数超过上限")
	ErrImportDuplicateCode = pkgerrors.New(pkgerrors.KindValidation, 16008, "需求编号重复")
	ErrImportParseFailed   = pkgerrors.New(pkgerrors.KindValidation, 16009, "文件解析失败")
	ErrImportBadStatus     = pkgerrors.New(pkgerrors.KindValidation, 16010, "导入的需求状态必须为待排期")
	ErrImportBadDate       = pkgerrors.New(pkgerrors.KindValidation, 16011, "日期格式无效")
)

// 表头别名
var (
	requirementColumns = map[string][]string{
		"code":         {"需求编号", "编号", "code"},
		"description":  {"需求描述", "描述", "description"},
		"requestor":    {"需求提出人", "提出人", "requestor", "requester"},
		"department":   {"需求部门", "所属部门", "部门", "department"},
		"request_date": {"提出日期", "需求日期", "日期", "request_date", "requestdate"},
		"status":       {"需求状态", "状态", "status"},
	}
	userColumns = map[string][]string{
		"username":   {"用户名", "username"},
		"password":   {"密码", "password"},
		"role":       {"角色", "role"},
		"name":       {"姓名", "name"},
		"phone":      {"手机号", "手机", "phone"},
		"email":      {"邮箱", "email"},
		"department": {"部门", "department"},
	}
)

// ImportService 批量导入业务接口
type ImportService interface {
	// ImportRequirements 整体导入：任一行校验失败则不写入任何数据
	ImportRequirements(ctx context.Context, filename string, r io.Reader) (*dto.ImportRequirementsResponse, error)
	// ImportUsers 逐行导入：无效或重复的行被跳过
	ImportUsers(ctx context.Context, filename string, r io.Reader, callerRole model.Role) (*dto.ImportUsersResponse, error)
}

type importService struct {
	cfg     *config.Config
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.Config, repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) ImportService {
	return &importService{cfg: cfg, repo: repo, metrics: m, logger: logger}
}

// parse 解析文件并校验行数上限
func (s *importService) parse(filename string, r io.Reader) (*table, error) {
	t, err := readTable(filename, r)
	if err != nil {
		if errors.Is(err, errUnsupportedFormat) {
			return nil, ErrImportBadFormat
		}
		return nil, ErrImportParseFailed.WithDetail("%v", err)
	}
	if len(t.rows) == 0 {
		return nil, ErrImportNoData
	}
	if max := s.cfg.Upload.MaxImportRows; max > 0 && len(t.rows) > max {
		return nil, ErrImportTooManyRows.WithDetail("最多 %d 行，实际 %d 行", max, len(t.rows))
	}
	return t, nil
}

// ────────────────────── 需求导入 ──────────────────────

func (s *importService) ImportRequirements(ctx context.Context, filename string, r io.Reader) (*dto.ImportRequirementsResponse, error) {
	t, err := s.parse(filename, r)
	if err != nil {
		return nil, err
	}

	col := columnIndex(t.header, requirementColumns)
	for _, field := range []string{"code", "description", "requestor", "department"} {
		if col[field] < 0 {
			return nil, ErrImportBadHeader.WithDetail("需要 需求编号/需求描述/需求提出人/需求部门")
		}
	}

	// 1. 逐行校验，全部通过才写入
	reqs := make([]model.Requirement, 0, len(t.rows))
	seen := make(map[string]int, len(t.rows))
	for _, row := range t.rows {
		item := model.Requirement{
			Code:        row.cell(col["code"]),
			Description: row.cell(col["description"]),
			Requestor:   row.cell(col["requestor"]),
			Department:  row.cell(col["department"]),
			RequestDate: today(),
			Status:      model.RequirementPending,
		}
		if item.Code == "" || item.Description == "" || item.Requestor == "" || item.Department == "" {
			return nil, ErrImportMissingField.WithDetail("第 %d 行", row.line)
		}

		if raw := row.cell(col["request_date"]); raw != "" {
			d, ok := parseDate(raw)
			if !ok {
				return nil, ErrImportBadDate.WithDetail("第 %d 行: %s", row.line, raw)
			}
			item.RequestDate = d
		}
		if raw := row.cell(col["status"]); raw != "" {
			st, ok := model.ParseRequirementStatus(raw)
			if !ok || st != model.RequirementPending {
				return nil, ErrImportBadStatus.WithDetail("第 %d 行: %s", row.line, raw)
			}
		}

		if first, dup := seen[item.Code]; dup {
			return nil, ErrImportDuplicateCode.WithDetail("第 %d 行与第 %d 行: %s", row.line, first, item.Code)
		}
		seen[item.Code] = row.line
		reqs = append(reqs, item)
	}

	// 2. 与已有数据比对编号
	codes := make([]string, 0, len(reqs))
	for _, item := range reqs {
		codes = append(codes, item.Code)
	}
	existing, err := s.repo.Requirement.ExistingCodes(ctx, codes)
	if err != nil {
		s.logger.Error("查询已有需求编号失败", zap.Error(err))
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrImportDuplicateCode.WithDetail("已存在: %s", strings.Join(existing, ","))
	}

	// 3. 单事务批量写入
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Requirement.CreateBatch(ctx, reqs)
	})
	if err != nil {
		s.logger.Error("批量导入需求失败", zap.Int("rows", len(reqs)), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordImport("requirements", len(reqs), 0)
	s.logger.Info("批量导入需求", zap.Int("count", len(reqs)))

	return &dto.ImportRequirementsResponse{
		Count:   len(reqs),
		Message: fmt.Sprintf("成功导入 %d 条需求", len(reqs)),
	}, nil
}

// ────────────────────── 用户导入 ──────────────────────

type importUserRow struct {
	line  int
	user  model.User
	plain string
}

func (s *importService) ImportUsers(ctx context.Context, filename string, r io.Reader, callerRole model.Role) (*dto.ImportUsersResponse, error) {
	t, err := s.parse(filename, r)
	if err != nil {
		return nil, err
	}

	col := columnIndex(t.header, userColumns)
	for _, field := range []string{"username", "password", "role"} {
		if col[field] < 0 {
			return nil, ErrImportBadHeader.WithDetail("需要 用户名/密码/角色")
		}
	}

	// 1. 行内校验与文件内去重（先出现者优先）
	var candidates []importUserRow
	seenUsername := make(map[string]bool)
	seenEmail := make(map[string]bool)
	for _, row := range t.rows {
		username := row.cell(col["username"])
		password := row.cell(col["password"])
		roleRaw := row.cell(col["role"])
		if username == "" || password == "" || roleRaw == "" {
			continue
		}
		role, ok := model.ParseRole(roleRaw)
		if !ok || (role == model.RoleSuperAdmin && callerRole != model.RoleSuperAdmin) {
			continue
		}
		email := optionalString(row.cell(col["email"]))

		if seenUsername[username] || (email != nil && seenEmail[*email]) {
			continue
		}
		seenUsername[username] = true
		if email != nil {
			seenEmail[*email] = true
		}

		candidates = append(candidates, importUserRow{
			line:  row.line,
			plain: password,
			user: model.User{
				Username:   username,
				Email:      email,
				Name:       row.cell(col["name"]),
				Phone:      row.cell(col["phone"]),
				Role:       role,
				Department: row.cell(col["department"]),
			},
		})
	}

	// 2. 与已有用户比对
	usernames := make([]string, 0, len(candidates))
	emails := make([]string, 0, len(candidates))
	for _, c := range candidates {
		usernames = append(usernames, c.user.Username)
		if c.user.Email != nil {
			emails = append(emails, *c.user.Email)
		}
	}
	takenNames, err := s.repo.User.ExistingUsernames(ctx, usernames)
	if err != nil {
		s.logger.Error("查询已有用户名失败", zap.Error(err))
		return nil, err
	}
	takenEmails, err := s.repo.User.ExistingEmails(ctx, emails)
	if err != nil {
		s.logger.Error("查询已有邮箱失败", zap.Error(err))
		return nil, err
	}

	// 3. 逐行写入，单行失败只跳过该行
	count := 0
	for _, c := range candidates {
		if takenNames[c.user.Username] || (c.user.Email != nil && takenEmails[*c.user.Email]) {
			continue
		}

		hash, err := hashPassword(c.plain)
		if err != nil {
			s.logger.Warn("导入用户密码哈希失败", zap.Int("line", c.line), zap.Error(err))
			continue
		}
		user := c.user
		user.PasswordHash = hash
		if err := s.repo.User.Create(ctx, &user); err != nil {
			s.logger.Warn("导入用户写入失败", zap.Int("line", c.line), zap.String("username", user.Username), zap.Error(err))
			continue
		}
		count++
	}

	total := len(t.rows)
	skipped := total - count
	s.metrics.RecordImport("users", count, skipped)
	s.logger.Info("批量导入用户", zap.Int("total", total), zap.Int("count", count), zap.Int("skipped", skipped))

	return &dto.ImportUsersResponse{
		Count:   count,
		Skipped: skipped,
		Total:   total,
		Message: fmt.Sprintf("成功导入 %d 个用户，跳过 %d 行", count, skipped),
	}, nil
}
