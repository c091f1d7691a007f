package controllers

import (
	"net/http"

	"github.com/rentmoto/rentmoto-backend/api/middleware"
	"github.com/rentmoto/rentmoto-backend/api/responses"
	"github.com/rentmoto/rentmoto-backend/api/validators"
	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

// rentalView decorates the stored rental with its derived time status so
// clients never compute deadlines themselves.
type rentalView struct {
	models.Rental
	TimeStatus rentals.TimeStatus `json:"timeStatus"`
}

func newRentalView(svc rentals.Service, rental models.Rental) rentalView {
	return rentalView{Rental: rental, TimeStatus: svc.TimeStatusFor(rental)}
}

func newRentalViews(svc rentals.Service, items []models.Rental) []rentalView {
	views := make([]rentalView, 0, len(items))
	for _, rental := range items {
		views = append(views, newRentalView(svc, rental))
	}
	return views
}

func rentalCursor(rental models.Rental) pagination.Cursor {
	return pagination.Cursor{CreatedAt: rental.CreatedAt, ID: rental.ID}
}

func actorRole(r *http.Request) (enums.UserRole, error) {
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	return role, nil
}

func CreateRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input rentals.CreateRentalInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.RenterID = actor

		rental, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRentalView(svc, *rental))
	}
}

func GetRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
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

		rental, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRentalView(svc, *rental))
	}
}

func ListRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), actor, role, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, next := pagination.Trim(list, params.Limit, rentalCursor)
		responses.WriteSuccess(w, map[string]any{
			"rentals":    newRentalViews(svc, page),
			"nextCursor": next,
		})
	}
}

func ConfirmRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
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

		var input rentals.ConfirmRentalInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.RentalID = id
		input.ActorID = actor

		rental, err := svc.Confirm(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRentalView(svc, *rental))
	}
}

func CancelRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := validators.ParseUUIDParam(r, "rentalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rental, err := svc.Cancel(r.Context(), rentals.CancelRentalInput{
			RentalID:  id,
			ActorID:   actor,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRentalView(svc, *rental))
	}
}

func IssueRentalQR(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
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

		var input rentals.IssueQRInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.RentalID = id
		input.ActorID = actor

		issued, err := svc.IssueQR(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

func VerifyRentalQR(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
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

		var input rentals.RedeemQRInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.RentalID = id
		input.ActorID = actor

		rental, err := svc.RedeemQR(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRentalView(svc, *rental))
	}
}
