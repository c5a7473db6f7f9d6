package model

import "time"

// バスケットの明細。
// (user_id, product_id) は1行だけ。DB制約で保証する。
type BasketItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_basket_user_product" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_basket_user_product" json:"product_id"`
	Product   Product   `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	AddedAt   time.Time `gorm:"not null;autoCreateTime" json:"added_at"`
}

// この明細の小計（price × quantity）。
func (b BasketItem) Cost() int64 {
	return b.Product.Price * b.Quantity
}
