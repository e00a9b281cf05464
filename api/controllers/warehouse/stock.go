package warehouse

import (
	"net/http"

	"github.com/tradehub/tradehub-backend/api/middleware"
	"github.com/tradehub/tradehub-backend/api/responses"
	"github.com/tradehub/tradehub-backend/api/validators"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	"github.com/tradehub/tradehub-backend/pkg/logger"
)

// StockIn adds quantity to a warehouse the caller's store owns.
func StockIn(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustStock(svc, logg, enums.StockChangeIncoming)
}

// StockOut removes quantity; a short balance is INSUFFICIENT_STOCK.
func StockOut(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustStock(svc, logg, enums.StockChangeOutgoing)
}

func adjustStock(svc inventory.Service, logg *logger.Logger, change enums.StockChangeType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actorID, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := toStockInput(payload)
		var record *models.Inventory
		if change == enums.StockChangeIncoming {
			record, err = svc.StockIn(r.Context(), actorID, input)
		} else {
			record, err = svc.StockOut(r.Context(), actorID, input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryRecord(record))
	}
}

func Movements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actorID, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.MovementsByProduct(r.Context(), actorID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newMovements(rows))
	}
}

func InventoryByProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actorID, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.InventoryByProduct(r.Context(), actorID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventory(rows))
	}
}

// InventoryByWarehouse lists a warehouse's balances for its store owner.
func InventoryByWarehouse(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("inventory"))
			return
		}
		actorID, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		warehouseID, err := validators.ParseUUIDParam(r, "warehouseId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.InventoryByWarehouse(r.Context(), actorID, warehouseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventory(rows))
	}
}
