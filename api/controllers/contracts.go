package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rentmoto/rentmoto-backend/api/middleware"
	"github.com/rentmoto/rentmoto-backend/api/responses"
	"github.com/rentmoto/rentmoto-backend/api/validators"
	"github.com/rentmoto/rentmoto-backend/internal/contracts"
	"github.com/rentmoto/rentmoto-backend/pkg/db/models"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/pagination"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	return id, nil
}

func CreateContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input contracts.CreateContractInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.LessorID = actor

		contract, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

func GetContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contract)
	}
}

// ListContracts serves the available catalogue; ?mine=true narrows to the
// caller's own contracts.
func ListContracts(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if mine := strings.TrimSpace(r.URL.Query().Get("mine")); mine != "" {
			wantMine, err := strconv.ParseBool(mine)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mine value"))
				return
			}
			if wantMine {
				actor, err := actorID(r)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				list, err := svc.ListByLessor(r.Context(), actor, params)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
				writeContractPage(w, list, params.Limit)
				return
			}
		}

		list, err := svc.ListAvailable(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeContractPage(w, list, params.Limit)
	}
}

func writeContractPage(w http.ResponseWriter, list []models.Contract, limit int) {
	page, next := pagination.Trim(list, limit, func(c models.Contract) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	responses.WriteSuccess(w, map[string]any{
		"contracts":  page,
		"nextCursor": next,
	})
}

func SetContractAvailability(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := validators.ParseUUIDParam(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input contracts.SetAvailabilityInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ContractID = id
		input.ActorID = actor

		contract, err := svc.SetAvailability(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contract)
	}
}
