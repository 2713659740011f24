package form

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/cxbdasheng/cfddns/config"
	"github.com/go-playground/validator/v10"
)

// 与路由器界面的 hostname 类型一致：允许下划线，不能全是数字和点
var (
	hostnameLabel  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	hostnameDotted = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_\-.]*[a-zA-Z0-9]\.?$`)
	hostnameAlpha  = regexp.MustCompile(`[^0-9.]`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("router_hostname", func(fl validator.FieldLevel) bool {
		return isHostname(fl.Field().String())
	})
	return v
}

func isHostname(s string) bool {
	if hostnameLabel.MatchString(s) {
		return true
	}
	return hostnameDotted.MatchString(s) && hostnameAlpha.MatchString(s)
}

func isMissingSection(err error) bool {
	return errors.Is(err, config.ErrNoSection)
}

// validateOption 校验单个字段，返回空字符串表示通过
func validateOption(o *Option, v string) string {
	if v == "" {
		return ""
	}

	if o.Kind == KindListValue && len(o.Choices) > 0 {
		values := make([]string, 0, len(o.Choices))
		for _, c := range o.Choices {
			values = append(values, c.Value)
		}
		if validate.Var(v, "oneof="+strings.Join(values, " ")) != nil {
			return "expecting one of: " + strings.Join(values, ", ")
		}
		return ""
	}

	switch o.Datatype {
	case DatatypeHostname:
		if validate.Var(v, "max=253,router_hostname") != nil {
			return "expecting a valid hostname"
		}
	case DatatypeUInteger:
		if validate.Var(v, "number") != nil {
			return "expecting a non-negative integer value"
		}
		if _, err := strconv.ParseUint(v, 10, 64); err != nil {
			return "expecting a non-negative integer value"
		}
	}
	return ""
}
