package etorder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// OrderNumberPrefix 订单号前缀
const OrderNumberPrefix = "CMD"

// ErrInvalidItemCode 扫码格式错误（与未找到区分）
var ErrInvalidItemCode = errors.New("item code must look like CMDXXXXX_<line>_<unit>")

var (
	orderNumberPattern = regexp.MustCompile(`^CMD[A-Z0-9]{5}$`)
	itemCodePattern    = regexp.MustCompile(`^(CMD[A-Z0-9]{5})_(\d+)_(\d+)$`)
)

// ItemCode 单件衣物编码：<订单号>_<行号>_<件号>，行号和件号从 1 开始
type ItemCode struct {
	OrderNumber string
	Line        int
	Unit        int
}

// String 编码字符串
func (c ItemCode) String() string {
	return fmt.Sprintf("%s_%d_%d", c.OrderNumber, c.Line, c.Unit)
}

// BuildItemCode 根据订单号和行、件序号生成编码
func BuildItemCode(orderNumber string, line, unit int) string {
	return ItemCode{OrderNumber: orderNumber, Line: line, Unit: unit}.String()
}

// ParseItemCode 校验并解析扫码内容，不需要订单 ID
func ParseItemCode(code string) (ItemCode, error) {
	m := itemCodePattern.FindStringSubmatch(code)
	if m == nil {
		return ItemCode{}, ErrInvalidItemCode
	}
	line, err := strconv.Atoi(m[2])
	if err != nil || line < 1 {
		return ItemCode{}, ErrInvalidItemCode
	}
	unit, err := strconv.Atoi(m[3])
	if err != nil || unit < 1 {
		return ItemCode{}, ErrInvalidItemCode
	}
	return ItemCode{OrderNumber: m[1], Line: line, Unit: unit}, nil
}

// IsItemCode 是否符合扫码格式
func IsItemCode(code string) bool {
	_, err := ParseItemCode(code)
	return err == nil
}

// IsOrderNumber 是否符合订单号格式
func IsOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
