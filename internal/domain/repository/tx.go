package repository

// Tx agrupa los repositorios atados a una misma transacción de BD.
// Los TxRunner de la capa de aplicación la reciben dentro de Run.
type Tx struct {
	Stock        StockLevelRepository
	Units        InventoryUnitRepository
	Transactions TransactionRepository
	Lines        TransactionLineRepository
	Returns      RentalReturnRepository
}
