package views

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/deevus/carbon-tui/internal/api"
)

const timeLayout = "02/01/2006 15:04"

// FormatAmount renders a money or credit amount with thousands separators
// and at most two decimals.
func FormatAmount(d decimal.Decimal) string {
	return humanize.CommafWithDigits(d.Round(2).InexactFloat64(), 2)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

func formatRelative(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// shortID keeps the first 8 characters of an identifier.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func fullName(u *api.User) string {
	if u == nil || u.FullName == "" {
		return FailedNameText
	}
	return u.FullName
}

// FailedNameText is shown for a user that resolved without a name.
const FailedNameText = "(không tên)"

// RoleLabel is the Vietnamese name of a role.
func RoleLabel(r api.Role) string {
	switch r {
	case api.RoleAdmin:
		return "Quản trị viên"
	case api.RoleEVOwner:
		return "Chủ xe điện"
	case api.RoleCVA:
		return "Kiểm định viên"
	case api.RoleBuyer:
		return "Người mua"
	}
	return string(r)
}
