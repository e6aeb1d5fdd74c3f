package views

import (
	"errors"
	"strings"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/validate"
)

// ErrorMessage returns the Vietnamese text shown to the user for a failed
// request. Client-side validation errors are already user-facing and pass
// through unchanged.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if verrs, ok := validate.AsErrors(err); ok {
		return verrs.Error()
	}

	var apiErr *api.APIError
	errors.As(err, &apiErr)

	switch api.KindOf(err) {
	case api.KindNetwork:
		return "Không thể kết nối tới máy chủ. Vui lòng thử lại."
	case api.KindCanceled:
		return "Yêu cầu đã bị hủy."
	case api.KindUnauthorized:
		return "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."
	case api.KindForbidden:
		return "Bạn không có quyền thực hiện thao tác này."
	case api.KindNotFound:
		return "Không tìm thấy dữ liệu yêu cầu."
	case api.KindInvalidOldPassword:
		return "Mật khẩu hiện tại không đúng."
	case api.KindRateLimited:
		return "Bạn thao tác quá nhanh. Vui lòng thử lại sau giây lát."
	case api.KindServer:
		return "Máy chủ gặp sự cố. Vui lòng thử lại sau."
	case api.KindConflict:
		switch {
		case apiErr != nil && strings.EqualFold(apiErr.Code, api.CodeDuplicateVIN):
			return "Số VIN đã được đăng ký."
		case apiErr != nil && strings.EqualFold(apiErr.Code, api.CodeDuplicateLicensePlate):
			return "Biển số xe đã được đăng ký."
		}
		return "Dữ liệu đã tồn tại hoặc đã bị thay đổi."
	case api.KindValidation:
		if apiErr != nil && strings.EqualFold(apiErr.Code, api.CodeInsufficientBalance) {
			return "Số dư không đủ."
		}
		if apiErr != nil && apiErr.Message != "" {
			return "Dữ liệu không hợp lệ: " + apiErr.Message
		}
		return "Dữ liệu không hợp lệ."
	}
	return "Đã xảy ra lỗi không xác định."
}
