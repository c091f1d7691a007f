package controllers

import (
	"net/http"

	"github.com/rentmoto/rentmoto-backend/api/responses"
	"github.com/rentmoto/rentmoto-backend/api/validators"
	"github.com/rentmoto/rentmoto-backend/internal/payments"
	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
)

// ListRentalPayments returns the gateway transactions recorded against a
// rental. Access is gated through the rentals service so only the rental's
// parties can read them.
func ListRentalPayments(svc payments.Service, rentalsSvc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := rentalsSvc.Get(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transactions, err := svc.ListByRental(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactions)
	}
}
