package userservice

import (
	"regexp"

	"github.com/sushihentaime/blogsphere/internal/common"
)

var (
	EmailRX     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UsernameRX  = regexp.MustCompile("^[a-zA-Z0-9_]+$")
	UppercaseRX = regexp.MustCompile("[A-Z]")
	LowercaseRX = regexp.MustCompile("[a-z]")
	NumberRX    = regexp.MustCompile("[0-9]")
)

func validateUsername(v *common.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(v.CheckStringLength(username, 3, 30), "username", "must be between 3 and 30 characters long")
	v.Check(common.Matches(username, UsernameRX), "username", "must only contain letters, numbers, and underscores")
}

func validateName(v *common.Validator, name string) {
	v.Check(name != "", "name", "must be provided")
	v.Check(v.CheckStringLength(name, 0, 100), "name", "must not be more than 100 characters long")
}

func validateEmail(v *common.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(common.Matches(email, EmailRX), "email", "must be a valid email address")
}

func validatePassword(v *common.Validator, field, password string) {
	v.Check(password != "", field, "must be provided")

	value := v.CheckStringLength(password, 6, 72) && UppercaseRX.MatchString(password) && LowercaseRX.MatchString(password) && NumberRX.MatchString(password)
	v.Check(value, field, "must be between 6 and 72 characters long and contain at least one uppercase letter, one lowercase letter, and one number")
}

func validateAvatar(v *common.Validator, avatar string) {
	v.Check(v.CheckStringLength(avatar, 0, 500), "avatar", "must not be more than 500 characters long")
}

func validateRole(v *common.Validator, role Role) {
	v.Check(common.PermittedValue(role, RoleUser, RoleAdmin), "role", "must be either user or admin")
}
