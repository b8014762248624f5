package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := New(KindNotFound, 13001, "需求不存在")
	detailed := sentinel.WithDetail("id=%d", 7)

	if !errors.Is(detailed, sentinel) {
		t.Error("带 Detail 的副本应与哨兵错误匹配")
	}
	if sentinel.Detail != "" {
		t.Error("WithDetail 不应修改哨兵本身")
	}
	if detailed.Error() != "需求不存在: id=7" {
		t.Errorf("Error() 输出不符: %s", detailed.Error())
	}

	wrapped := fmt.Errorf("查询失败: %w", detailed)
	if !errors.Is(wrapped, sentinel) {
		t.Error("包装后仍应匹配")
	}
	if errors.Is(wrapped, ErrValidation) {
		t.Error("不同业务码不应匹配")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err    error
		kind   Kind
		status int
	}{
		{ErrValidation, KindValidation, http.StatusBadRequest},
		{ErrUnauthorized, KindUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, KindForbidden, http.StatusForbidden},
		{New(KindNotFound, 1, "x"), KindNotFound, http.StatusNotFound},
		{New(KindConflict, 2, "y"), KindConflict, http.StatusConflict},
		{errors.New("driver: bad connection"), KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got := KindOf(tt.err)
		if got != tt.kind {
			t.Errorf("KindOf(%v)=%v, want %v", tt.err, got, tt.kind)
		}
		if got.HTTPStatus() != tt.status {
			t.Errorf("%v.HTTPStatus()=%d, want %d", got, got.HTTPStatus(), tt.status)
		}
	}
}
