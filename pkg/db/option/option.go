// Package option provides composable query modifiers for the generic store.
package option

import (
	pkgdb "github.com/shockvaluemedia/directfanz/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type optionFunc func(db *gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func WithLimit(limit int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

func WithOrder(order string) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if order == "" {
			return db
		}
		return db.Order(order)
	})
}

// WithForUpdate takes a row lock for the duration of the surrounding
// transaction. No-op on drivers without locking clauses.
func WithForUpdate() QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if !pkgdb.SupportsRowLocking(db) {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	})
}
