package service

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"req-pool/internal/dto"
	"req-pool/internal/model"
)

// passwordHashCost bcrypt 代价，测试中可调低
var passwordHashCost = bcrypt.DefaultCost

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateTempPassword 生成随机临时密码（至少包含1个字母和1个数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	result := make([]byte, length)
	var err error
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// 打乱，避免固定位置
	for i := length - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		result[i], result[j] = result[j], result[i]
	}

	return string(result), nil
}

// ── 时间解析 ──

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006.01.02",
	"2006年1月2日",
	"01-02-06", // Excel 默认日期格式
	"1/2/06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate 解析日期，返回当天零点（本地时区）
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

// parseDateTime 解析时间点，只给出日期时取当天零点
func parseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return parseDate(s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func today() time.Time {
	return truncateDay(time.Now())
}

// ── 集合 ──

// uniqueIDs 去重并升序排列，忽略 0
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ── 模型 → DTO ──

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.EmailValue(),
		Name:       u.Name,
		Phone:      u.Phone,
		Role:       string(u.Role),
		RoleLabel:  u.Role.Label(),
		Department: u.Department,
		CreatedAt:  u.CreatedAt.Format(dto.DateTimeLayout),
	}
}

func toUserResponses(users []model.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out
}

func toRequirementResponse(r *model.Requirement) dto.RequirementResponse {
	resp := dto.RequirementResponse{
		ID:          r.ID,
		Code:        r.Code,
		Description: r.Description,
		Requestor:   r.Requestor,
		Department:  r.Department,
		RequestDate: r.RequestDate.Format(dto.DateLayout),
		Status:      string(r.Status),
		StatusLabel: r.Status.Label(),
		ProjectID:   r.ProjectID,
		CreatedAt:   r.CreatedAt.Format(dto.DateTimeLayout),
		UpdatedAt:   r.UpdatedAt.Format(dto.DateTimeLayout),
	}
	if r.ProjectStatus != nil {
		ps := string(*r.ProjectStatus)
		resp.ProjectStatus = &ps
		resp.ProjectStatusLabel = r.ProjectStatus.Label()
	}
	return resp
}

func toProjectResponse(p *model.Project, requirementIDs []uint) dto.ProjectResponse {
	if requirementIDs == nil {
		requirementIDs = []uint{}
	}
	resp := dto.ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		CreateTime:     p.CreateTime.Format(dto.DateLayout),
		Status:         string(p.Status),
		StatusLabel:    p.Status.Label(),
		RequirementIDs: requirementIDs,
		CreatedAt:      p.CreatedAt.Format(dto.DateTimeLayout),
		UpdatedAt:      p.UpdatedAt.Format(dto.DateTimeLayout),
	}
	if p.LaunchTime != nil {
		lt := p.LaunchTime.Format(dto.DateTimeLayout)
		resp.LaunchTime = &lt
	}
	return resp
}

func toServiceUnitResponse(u *model.ServiceUnit) dto.ServiceUnitResponse {
	resp := dto.ServiceUnitResponse{
		ID:          u.ID,
		Name:        u.Name,
		LeaderID:    u.LeaderID,
		MemberIDs:   make([]uint, 0, len(u.Members)),
		MemberNames: make([]string, 0, len(u.Members)),
		CreatedAt:   u.CreatedAt.Format(dto.DateTimeLayout),
		UpdatedAt:   u.UpdatedAt.Format(dto.DateTimeLayout),
	}
	if u.Leader != nil {
		resp.LeaderName = displayName(u.Leader)
	}
	for _, m := range u.Members {
		resp.MemberIDs = append(resp.MemberIDs, m.UserID)
		if m.User != nil {
			resp.MemberNames = append(resp.MemberNames, displayName(m.User))
		}
	}
	return resp
}

// displayName 优先使用姓名，缺省时使用用户名
func displayName(u *model.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
