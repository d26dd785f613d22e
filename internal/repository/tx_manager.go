package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	Inventory() InventoryRepository
	TrackingEvents() TrackingEventRepository
	Products() ProductRepository
	Transporters() TransporterRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返したらすべて巻き戻す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
