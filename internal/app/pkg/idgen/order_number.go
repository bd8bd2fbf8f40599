package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"
)

const (
	orderNumberPrefix  = "CMD"
	orderNumberLength  = 5
	orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// OrderNumberGenerator 订单号生成器
// 格式: CMD + 5 位大写字母或数字，约 6000 万种组合；冲突由唯一索引兜底，调用方重试
type OrderNumberGenerator struct {
	rand io.Reader
}

// NewOrderNumberGenerator 创建订单号生成器
func NewOrderNumberGenerator() *OrderNumberGenerator {
	return &OrderNumberGenerator{rand: rand.Reader}
}

// Next 生成下一个订单号
func (g *OrderNumberGenerator) Next() (string, error) {
	buf := make([]byte, 0, len(orderNumberPrefix)+orderNumberLength)
	buf = append(buf, orderNumberPrefix...)

	max := big.NewInt(int64(len(orderNumberCharset)))
	for i := 0; i < orderNumberLength; i++ {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate order number failed: %w", err)
		}
		buf = append(buf, orderNumberCharset[n.Int64()])
	}
	return string(buf), nil
}

// NewID 生成订单、单件和请求使用的 UUID
func NewID() string {
	return uuid.New().String()
}
