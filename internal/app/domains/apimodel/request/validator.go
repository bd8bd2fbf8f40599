package request

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gorbenco03/curatire-backend/internal/app/domains/entity/etorder"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验规则，错误路径使用 json 字段名
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Register(v)
	})
}

// Register 在指定 validator 上注册规则
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	_ = v.RegisterValidation("ro_phone", func(fl validator.FieldLevel) bool {
		return etorder.IsValidPhone(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("item_code", func(fl validator.FieldLevel) bool {
		return etorder.IsItemCode(strings.TrimSpace(fl.Field().String()))
	})
}
