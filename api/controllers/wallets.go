package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/api/middleware"
	"github.com/nocturne-labs/ghostpass-backend/api/responses"
	"github.com/nocturne-labs/ghostpass-backend/api/validators"
	"github.com/nocturne-labs/ghostpass-backend/internal/wallet"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
	"github.com/nocturne-labs/ghostpass-backend/pkg/pagination"
)

// WalletCreate opens a wallet for an owner. One wallet per owner.
func WalletCreate(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		var payload walletCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateWallet(r.Context(), payload.OwnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletResponse(created))
	}
}

// WalletDetail returns the wallet identified by the path id.
func WalletDetail(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := uuidParam(r, "walletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.GetWallet(r.Context(), walletID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(found))
	}
}

// WalletFund credits the wallet from an external funding source.
func WalletFund(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := uuidParam(r, "walletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload walletFundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := enums.ParseFundingSource(payload.Source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid funding source"))
			return
		}

		result, err := svc.Credit(r.Context(), wallet.CreditInput{
			WalletID:    walletID,
			AmountCents: payload.AmountCents,
			Source:      source,
			ActorID:     middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletMutationResponse{
			Wallet:      newWalletResponse(result.Wallet),
			Transaction: newTransactionResponse(*result.Transaction),
		})
	}
}

// WalletTransactions pages through the wallet's ledger history, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		walletID, err := uuidParam(r, "walletID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  intQuery(r, "limit"),
			Cursor: r.URL.Query().Get("cursor"),
		}
		rows, nextCursor, err := svc.ListTransactions(r.Context(), walletID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]transactionResponse, 0, len(rows))
		for _, row := range rows {
			items = append(items, newTransactionResponse(row))
		}
		responses.WriteSuccess(w, transactionPageResponse{
			Transactions: items,
			NextCursor:   nextCursor,
		})
	}
}

type walletCreateRequest struct {
	OwnerID uuid.UUID `json:"owner_id" validate:"required"`
}

type walletFundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Source      string `json:"source" validate:"required"`
}

type walletResponse struct {
	WalletID     uuid.UUID `json:"wallet_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

type transactionResponse struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	AmountCents   int64      `json:"amount_cents"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	PassID        *uuid.UUID `json:"pass_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type walletMutationResponse struct {
	Wallet      walletResponse      `json:"wallet"`
	Transaction transactionResponse `json:"transaction"`
}

type transactionPageResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	NextCursor   string                `json:"next_cursor,omitempty"`
}

func newWalletResponse(w *models.Wallet) walletResponse {
	if w == nil {
		return walletResponse{}
	}
	return walletResponse{
		WalletID:     w.ID,
		OwnerID:      w.OwnerID,
		BalanceCents: w.BalanceCents,
		CreatedAt:    w.CreatedAt,
	}
}

func newTransactionResponse(txn models.LedgerTransaction) transactionResponse {
	return transactionResponse{
		TransactionID: txn.ID,
		AmountCents:   txn.AmountCents,
		Source:        string(txn.Source),
		Status:        string(txn.Status),
		PassID:        txn.PassID,
		CreatedAt:     txn.CreatedAt,
	}
}
