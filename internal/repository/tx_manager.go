package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Customers() CustomerRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Orders() OrderRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがerrorを返したら全部rollbackされる。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error

	// 集計用。読み取り専用で、一貫したスナップショットを見る
	WithinReadOnlyTx(ctx context.Context, fn func(r TxRepos) error) error
}
