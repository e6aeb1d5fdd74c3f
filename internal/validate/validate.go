// Package validate checks user input before it is sent to a service. Messages
// are Vietnamese and shown to the user as-is.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/deevus/carbon-tui/internal/api"
)

const dateLayout = "2006-01-02"

var (
	vnPhone = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)[0-9]{8}$`)
	// VINs are 17 characters and never contain I, O or Q.
	vinPattern = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)
)

// FieldError is one failed check.
type FieldError struct {
	Field   string
	Message string
}

// Errors is the list of failed checks for one input.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Field returns the first message for field, or "".
func (e Errors) Field(name string) string {
	for _, fe := range e {
		if fe.Field == name {
			return fe.Message
		}
	}
	return ""
}

// AsErrors extracts Errors from err.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	ok := errors.As(err, &errs)
	return errs, ok
}

type passwordInput struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,complex,nefield=OldPassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=NewPassword"`
}

type profileInput struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,vnphone"`
	Dob         string `json:"dob" validate:"omitempty,datetime=2006-01-02,notfuture"`
}

type vehicleInput struct {
	VIN           string `json:"vin" validate:"required,vin"`
	LicensePlate  string `json:"licensePlate" validate:"required"`
	VehicleTypeID string `json:"vehicleTypeId" validate:"required"`
}

// messages maps field and tag to the text shown. A "*" tag matches any tag
// of that field.
var messages = map[string]map[string]string{
	"oldPassword": {"*": "Vui lòng nhập mật khẩu hiện tại"},
	"newPassword": {
		"required": "Vui lòng nhập mật khẩu mới",
		"nefield":  "Mật khẩu mới phải khác mật khẩu hiện tại",
		"*":        "Mật khẩu mới phải có ít nhất 8 ký tự, gồm chữ hoa, chữ thường, chữ số và ký tự đặc biệt",
	},
	"confirmPassword": {"*": "Xác nhận mật khẩu không khớp"},
	"fullName":        {"*": "Họ tên không được để trống"},
	"email": {
		"required": "Email không được để trống",
		"*":        "Email không hợp lệ",
	},
	"phoneNumber": {"*": "Số điện thoại không hợp lệ"},
	"dob": {
		"notfuture": "Ngày sinh không được ở tương lai",
		"*":         "Ngày sinh không hợp lệ (YYYY-MM-DD)",
	},
	"vin": {
		"required": "Số VIN không được để trống",
		"*":        "Số VIN không hợp lệ",
	},
	"licensePlate":  {"*": "Biển số không được để trống"},
	"vehicleTypeId": {"*": "Vui lòng chọn loại xe"},
}

// Duplicate messages.
const (
	MsgDuplicateVIN   = "Số VIN đã tồn tại"
	MsgDuplicatePlate = "Biển số đã tồn tại"
)

// Validator runs the input checks.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// New creates a Validator. now is used for date checks; nil selects
// time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})

	val := &Validator{v: v, now: now}
	_ = v.RegisterValidation("complex", func(fl validator.FieldLevel) bool {
		return ComplexPassword(fl.Field().String())
	})
	_ = v.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
		return vnPhone.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	})
	_ = v.RegisterValidation("vin", func(fl validator.FieldLevel) bool {
		return vinPattern.MatchString(normalize(fl.Field().String()))
	})
	_ = v.RegisterValidation("notfuture", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil && !d.After(val.now())
	})
	return val
}

// ComplexPassword reports whether pw has an upper and a lower case letter, a
// digit and a symbol. Length is checked separately.
func ComplexPassword(pw string) bool {
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// Password checks a change-password request.
func (v *Validator) Password(req api.ChangePasswordRequest) error {
	return v.run(passwordInput(req))
}

// Profile checks a profile update.
func (v *Validator) Profile(upd api.ProfileUpdate) error {
	return v.run(profileInput{
		FullName:    strings.TrimSpace(upd.FullName),
		Email:       strings.TrimSpace(upd.Email),
		PhoneNumber: strings.TrimSpace(upd.PhoneNumber),
		Dob:         strings.TrimSpace(upd.Dob),
	})
}

// Vehicle checks a new vehicle, including duplicate VIN and licence plate
// against vehicles already fetched for the owner.
func (v *Validator) Vehicle(veh api.Vehicle, existing []api.Vehicle) error {
	err := v.run(vehicleInput{
		VIN:           strings.TrimSpace(veh.VIN),
		LicensePlate:  strings.TrimSpace(veh.LicensePlate),
		VehicleTypeID: veh.VehicleTypeID,
	})
	errs, _ := AsErrors(err)

	vin, plate := normalize(veh.VIN), normalize(veh.LicensePlate)
	for _, e := range existing {
		if vin != "" && normalize(e.VIN) == vin && errs.Field("vin") == "" {
			errs = append(errs, FieldError{Field: "vin", Message: MsgDuplicateVIN})
		}
		if plate != "" && normalize(e.LicensePlate) == plate && errs.Field("licensePlate") == "" {
			errs = append(errs, FieldError{Field: "licensePlate", Message: MsgDuplicatePlate})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (v *Validator) run(input any) error {
	err := v.v.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, FieldError{Field: fe.Field(), Message: message(fe.Field(), fe.Tag())})
	}
	return errs
}

func message(field, tag string) string {
	byTag := messages[field]
	if m, ok := byTag[tag]; ok {
		return m
	}
	if m, ok := byTag["*"]; ok {
		return m
	}
	return field + " không hợp lệ"
}

// normalize folds case and drops all whitespace.
func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
