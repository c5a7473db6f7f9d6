package usecase

import (
	"context"
	"errors"
	"net/http"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// BasketUsecase はバスケットの業務ロジック。
// 明細の増減と在庫の予約/解放は必ず同じトランザクションで行う。
type BasketUsecase struct {
	tx         repo.TransactionManager
	basketRepo repo.BasketRepository
}

// DI
func NewBasketUsecase(tx repo.TransactionManager, basketRepo repo.BasketRepository) *BasketUsecase {
	return &BasketUsecase{tx: tx, basketRepo: basketRepo}
}

type BasketLineOutput struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Cost      int64  `json:"cost"`
}

type BasketOutput struct {
	Items         []BasketLineOutput `json:"items"`
	TotalQuantity int64              `json:"total_quantity"`
	TotalCost     int64              `json:"total_cost"`
}

// GetBasket はユーザーのバスケットと合計を返す。
func (u *BasketUsecase) GetBasket(ctx context.Context, userID int64) (BasketOutput, error) {
	if userID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildBasketOutput(ctx, userID)
}

// AddProduct は商品をバスケットへ1つ追加する。
// 既に明細があれば数量+1（DB側の式で加算）、無ければ数量1で新規作成。
// どちらの場合も同じTxで在庫を1予約する。
func (u *BasketUsecase) AddProduct(ctx context.Context, userID int64, productID int64) (BasketOutput, error) {
	if userID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return err
		}
		if !p.IsActive {
			return NewHTTPError(http.StatusBadRequest, "product is not for sale")
		}

		item, err := r.BasketItems().FindByUserAndProduct(ctx, userID, productID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			_, err = r.BasketItems().Create(ctx, model.BasketItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  1,
			})
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := r.BasketItems().IncrementQuantity(ctx, item.ID, 1); err != nil {
				return err
			}
		}

		// 在庫の予約（足りなければ全部ロールバック）
		ok, err := r.Inventory().ReserveStock(ctx, productID, 1)
		if err != nil {
			return err
		}
		if !ok {
			return repo.ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		return BasketOutput{}, mapBasketError(err)
	}

	return u.buildBasketOutput(ctx, userID)
}

// SetQuantity は明細の数量を変更する。0以下は削除と同じ扱い。
// 在庫は差分（new - old）だけ動かす。
func (u *BasketUsecase) SetQuantity(ctx context.Context, userID int64, itemID int64, qty int64) (BasketOutput, error) {
	if userID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := u.ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}

		if qty <= 0 {
			// 削除と同じ：全量を在庫へ戻す
			if err := r.Inventory().ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			return r.BasketItems().DeleteByID(ctx, item.ID)
		}

		delta := qty - item.Quantity
		if delta > 0 {
			ok, err := r.Inventory().ReserveStock(ctx, item.ProductID, delta)
			if err != nil {
				return err
			}
			if !ok {
				return repo.ErrInsufficientStock
			}
		} else if delta < 0 {
			if err := r.Inventory().ReleaseStock(ctx, item.ProductID, -delta); err != nil {
				return err
			}
		}

		return r.BasketItems().UpdateQuantity(ctx, item.ID, qty)
	})
	if err != nil {
		return BasketOutput{}, mapBasketError(err)
	}

	return u.buildBasketOutput(ctx, userID)
}

// RemoveItem は明細を削除して予約分を在庫へ戻す。
func (u *BasketUsecase) RemoveItem(ctx context.Context, userID int64, itemID int64) (BasketOutput, error) {
	if userID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return BasketOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		item, err := u.ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}

		if err := r.Inventory().ReleaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		return r.BasketItems().DeleteByID(ctx, item.ID)
	})
	if err != nil {
		return BasketOutput{}, mapBasketError(err)
	}

	return u.buildBasketOutput(ctx, userID)
}

// 明細を取り、他人のものなら存在ごと隠す（404）。
func (u *BasketUsecase) ownedItem(ctx context.Context, r repo.TxRepos, userID int64, itemID int64) (model.BasketItem, error) {
	item, err := r.BasketItems().FindByID(ctx, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.BasketItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.BasketItem{}, err
	}
	if item.UserID != userID {
		return model.BasketItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return item, nil
}

// 合計は1回のスナップショットから両方（数量・金額）を計算する。
func (u *BasketUsecase) buildBasketOutput(ctx context.Context, userID int64) (BasketOutput, error) {
	items, err := u.basketRepo.ListByUser(ctx, userID)
	if err != nil {
		return BasketOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := BasketOutput{Items: make([]BasketLineOutput, 0, len(items))}
	for _, it := range items {
		cost := it.Cost()
		out.Items = append(out.Items, BasketLineOutput{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			Price:     it.Product.Price,
			Quantity:  it.Quantity,
			Cost:      cost,
		})
		out.TotalQuantity += it.Quantity
		out.TotalCost += cost
	}

	return out, nil
}

func mapBasketError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrInsufficientStock) {
		return NewHTTPError(http.StatusConflict, "insufficient stock")
	}
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
