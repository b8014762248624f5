package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"

	"req-pool/internal/model"
)

func TestImportRequirements_CSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	csvData := "\ufeff需求编号,需求描述,需求提出人,需求部门,提出日期,需求状态\n" +
		"REQ-001,登录页改版,张三,研发部,2026-01-05,待排期\n" +
		"\n" +
		"REQ-002,\"报表, 导出\",李四,财务部,,\n"

	resp, err := env.svc.Import.ImportRequirements(ctx, "reqs.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Count != 2 || resp.Message != "成功导入 2 条需求" {
		t.Errorf("导入结果不符: %+v", resp)
	}

	r, err := env.repo.Requirement.GetByCode(ctx, "REQ-002")
	if err != nil {
		t.Fatalf("查询导入需求失败: %v", err)
	}
	if r.Description != "报表, 导出" || r.Status != model.RequirementPending || r.Scheduled() {
		t.Errorf("导入需求字段不符: %+v", r)
	}
	if !r.RequestDate.Equal(today()) {
		t.Errorf("缺省提出日期应为当天，实际=%v", r.RequestDate)
	}

	if got := testutil.ToFloat64(env.metrics.ImportRowsTotal.WithLabelValues("requirements", "imported")); got != 2 {
		t.Errorf("导入指标应为 2，实际=%v", got)
	}
}

func TestImportRequirements_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createRequirement(t, "REQ-EXIST")

	tests := []struct {
		name string
		data string
		want error
	}{
		{
			"缺少部门列",
			"需求编号,需求描述,需求提出人\nREQ-001,a,b\nREQ-002,c,d\n",
			ErrImportBadHeader,
		},
		{
			"某行缺少字段",
			"需求编号,需求描述,需求提出人,需求部门\nREQ-001,a,b,c\nREQ-002,,d,e\n",
			ErrImportMissingField,
		},
		{
			"文件内编号重复",
			"需求编号,需求描述,需求提出人,需求部门\nREQ-001,a,b,c\nREQ-001,d,e,f\n",
			ErrImportDuplicateCode,
		},
		{
			"与已有需求编号重复",
			"需求编号,需求描述,需求提出人,需求部门\nREQ-001,a,b,c\nREQ-EXIST,d,e,f\n",
			ErrImportDuplicateCode,
		},
		{
			"状态不是待排期",
			"需求编号,需求描述,需求提出人,需求部门,需求状态\nREQ-001,a,b,c,已完成\n",
			ErrImportBadStatus,
		},
		{
			"日期无效",
			"需求编号,需求描述,需求提出人,需求部门,提出日期\nREQ-001,a,b,c,明天\n",
			ErrImportBadDate,
		},
		{
			"只有表头",
			"需求编号,需求描述,需求提出人,需求部门\n",
			ErrImportNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Import.ImportRequirements(ctx, "reqs.csv", strings.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Fatalf("期望 %v，实际=%v", tt.want, err)
			}
			if n, _ := env.repo.Requirement.Count(ctx); n != 1 {
				t.Errorf("失败时不应写入任何需求，实际共 %d 条", n)
			}
		})
	}
}

func TestImportRequirements_Limits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Import.ImportRequirements(ctx, "reqs.txt", strings.NewReader("x")); !errors.Is(err, ErrImportBadFormat) {
		t.Errorf("不支持的扩展名应返回 ErrImportBadFormat，实际=%v", err)
	}

	var sb strings.Builder
	sb.WriteString("需求编号,需求描述,需求提出人,需求部门\n")
	for i := 0; i <= env.cfg.Upload.MaxImportRows; i++ {
		sb.WriteString("REQ-")
		sb.WriteString(strings.Repeat("9", i+1))
		sb.WriteString(",a,b,c\n")
	}
	if _, err := env.svc.Import.ImportRequirements(ctx, "reqs.csv", strings.NewReader(sb.String())); !errors.Is(err, ErrImportTooManyRows) {
		t.Errorf("超过行数上限应返回 ErrImportTooManyRows，实际=%v", err)
	}
}

func TestImportRequirements_XLSX(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	f := excelize.NewFile()
	rows := [][]any{
		{"编号", "描述", "提出人", "部门"},
		{"REQ-X1", "移动端适配", "王五", "产品部"},
		{"REQ-X2", "权限细化", "赵六", "安全部"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("写入单元格失败: %v", err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("生成 xlsx 失败: %v", err)
	}
	f.Close()

	resp, err := env.svc.Import.ImportRequirements(ctx, "需求.XLSX", buf)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("期望导入 2 条，实际=%d", resp.Count)
	}
}

func TestImportUsers_SkipsInvalidRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "existing", model.RoleDeveloper)

	csvData := "用户名,密码,角色,姓名,手机号,邮箱,部门\n" +
		"u1,pass01,developer,用户一,13800000001,u1@example.com,研发部\n" + // 导入
		"u2,pass02,测试人员,用户二,,,测试部\n" + // 导入（中文角色）
		"existing,pass03,developer,重名,,,\n" + // 已有用户名
		"u4,pass04,developer,用户四,,,\n" + // 导入
		"u5,,developer,缺密码,,,\n" + // 缺必填
		"u6,pass06,ceo,未知角色,,,\n" + // 角色无效
		"u1,pass07,tester,文件内重名,,,\n" + // 文件内重复，先出现者优先
		"u8,pass08,super_admin,越权,,,\n" + // 管理员不能导入超级管理员
		"u9,pass09,tester,邮箱重复,,existing@example.com,\n" // 已有邮箱

	resp, err := env.svc.Import.ImportUsers(ctx, "users.csv", strings.NewReader(csvData), model.RoleAdmin)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Count != 3 || resp.Skipped != 6 || resp.Total != 9 {
		t.Fatalf("期望 count=3 skipped=6 total=9，实际=%+v", resp)
	}

	u1, err := env.repo.User.GetByUsername(ctx, "u1")
	if err != nil {
		t.Fatalf("u1 应被导入: %v", err)
	}
	if u1.Name != "用户一" || u1.Role != model.RoleDeveloper || u1.Phone != "13800000001" {
		t.Errorf("u1 字段不符: %+v", u1)
	}
	if !checkPassword(u1.PasswordHash, "pass01") {
		t.Error("u1 密码应按文件内容哈希存储")
	}

	u2, _ := env.repo.User.GetByUsername(ctx, "u2")
	if u2 == nil || u2.Role != model.RoleTester || u2.Email != nil {
		t.Errorf("u2 角色应为 tester 且无邮箱: %+v", u2)
	}

	for _, name := range []string{"u5", "u6", "u8", "u9"} {
		if _, err := env.repo.User.GetByUsername(ctx, name); err == nil {
			t.Errorf("%s 应被跳过", name)
		}
	}
}

func TestImportUsers_SuperAdminCaller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	csvData := "username,password,role\nroot2,pass01,super_admin\n"
	resp, err := env.svc.Import.ImportUsers(ctx, "users.csv", strings.NewReader(csvData), model.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("超级管理员可导入超级管理员，实际 count=%d", resp.Count)
	}
}

func TestImportUsers_BadHeader(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Import.ImportUsers(context.Background(), "users.csv",
		strings.NewReader("用户名,姓名\nu1,用户一\n"), model.RoleAdmin)
	if !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("缺少密码/角色列应返回 ErrImportBadHeader，实际=%v", err)
	}
}
