package inventory

import (
	"sort"

	"github.com/jhoicas/rental-core/internal/domain/entity"
)

// Suggestion una línea de la lista de reposición.
type Suggestion struct {
	StockLevelID      string
	SKUID             string
	LocationID        string
	Available         int
	ReorderPoint      int
	Deficit           int
	SuggestedQuantity int
	Priority          int
}

// RankReplenishment arma la lista de reposición con los niveles activos que necesitan pedido.
// Orden: mayor déficit (punto de reorden - disponible) primero; empates por SKU.
// Priority 1 es la más urgente.
func RankReplenishment(levels []*entity.StockLevel) []Suggestion {
	out := make([]Suggestion, 0, len(levels))
	for _, s := range levels {
		if !s.IsActive || !s.NeedsReorder() {
			continue
		}
		out = append(out, Suggestion{
			StockLevelID:      s.ID,
			SKUID:             s.SKUID,
			LocationID:        s.LocationID,
			Available:         s.Available(),
			ReorderPoint:      s.ReorderPoint(),
			Deficit:           s.ReorderPoint() - s.Available(),
			SuggestedQuantity: s.SuggestedOrderQuantity(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Deficit != out[j].Deficit {
			return out[i].Deficit > out[j].Deficit
		}
		return out[i].SKUID < out[j].SKUID
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out
}
