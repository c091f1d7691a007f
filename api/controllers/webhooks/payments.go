package webhooks

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentmoto/rentmoto-backend/api/responses"
	"github.com/rentmoto/rentmoto-backend/api/validators"
	"github.com/rentmoto/rentmoto-backend/internal/payments"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	pkgerrors "github.com/rentmoto/rentmoto-backend/pkg/errors"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
)

// callbackBody is the common shape both gateways post. Numeric fields arrive
// as numbers or strings depending on the provider, so everything passes
// through json.Number.
type callbackBody struct {
	OrderID    string      `json:"orderId" validate:"required"`
	TransID    json.Number `json:"transId" validate:"required"`
	Amount     json.Number `json:"amount" validate:"required"`
	ResultCode json.Number `json:"resultCode"`
	Message    string      `json:"message"`
}

func (b callbackBody) toInput(provider enums.PaymentProvider) (payments.CallbackInput, error) {
	orderID, err := uuid.Parse(strings.TrimSpace(b.OrderID))
	if err != nil {
		return payments.CallbackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderId")
	}
	amount, err := decimal.NewFromString(b.Amount.String())
	if err != nil {
		return payments.CallbackInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return payments.CallbackInput{
		Provider:   provider,
		OrderID:    orderID,
		TransID:    b.TransID.String(),
		Amount:     amount,
		ResultCode: b.ResultCode.String(),
	}, nil
}

// MomoCallback ingests MoMo IPN callbacks.
func MomoCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentCallback(svc, logg, enums.PaymentProviderMomo)
}

// ZaloPayCallback ingests ZaloPay callbacks.
func ZaloPayCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return paymentCallback(svc, logg, enums.PaymentProviderZaloPay)
}

func paymentCallback(svc payments.Service, logg *logger.Logger, provider enums.PaymentProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body callbackBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput(provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.HandleCallback(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// always 200 for handled callbacks so gateways stop retrying
		responses.WriteSuccess(w, map[string]any{
			"duplicate": outcome.Duplicate,
			"applied":   outcome.Applied,
			"reason":    outcome.Reason,
		})
	}
}
