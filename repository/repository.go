package repository

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// notFound maps gorm's sentinel to ErrNotFound so callers don't import gorm.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// numeric binds a decimal as a SQL numeric expression operand. Binding the raw
// string would compare as text on SQLite.
func numeric(d decimal.Decimal) interface{} {
	return gorm.Expr("CAST(? AS DECIMAL(32,8))", d.String())
}

func pageOffset(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 500 {
		size = 50
	}
	return (page - 1) * size, size
}
