package model

import "time"

// 商品。
// Priceは最小通貨単位（セント）で持つ。1500 = 15.00。
// Quantityは在庫数。カタログ編集では触らず、バスケット操作と
// 在庫調整APIだけが動かす。
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  int64           `gorm:"not null;index" json:"category_id"`
	Category    ProductCategory `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name        string          `gorm:"type:varchar(30);not null" json:"name"`
	ShortDesc   string          `gorm:"type:varchar(60)" json:"short_desc"`
	Description string          `gorm:"type:text" json:"description"`
	Price       int64           `gorm:"not null;default:0" json:"price"`
	Quantity    int64           `gorm:"not null;default:0" json:"quantity"`
	IsActive    bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
