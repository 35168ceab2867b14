// Package utils 通用工具
package utils

// Pagination 分页信息
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// NewPagination 规范化页码与页大小，pageSize 非正时取 defaultSize，超过 maxSize 时截断
func NewPagination(page, pageSize, defaultSize, maxSize int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// SetTotal 写入总数并计算总页数
func (p *Pagination) SetTotal(total int64) {
	p.Total = total
	p.Pages = (total + int64(p.PageSize) - 1) / int64(p.PageSize)
}

// Offset 获取数据库查询偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit 获取数据库查询限制
func (p *Pagination) Limit() int {
	return p.PageSize
}
