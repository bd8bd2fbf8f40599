package etprimitive

// 基础类型和通用值对象

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination 分页参数
type Pagination struct {
	Page  int
	Limit int
	Total int64
}

// Normalize 修正非法分页参数
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Offset 数据库偏移量
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages 总页数
func (p Pagination) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}
