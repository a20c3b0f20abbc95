package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
)

// LedgerTransaction records an immutable balance mutation against a wallet.
// Credits carry a positive amount, debits a negative one. Rows are only ever
// inserted; there is no update or delete path.
type LedgerTransaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	WalletID    uuid.UUID               `gorm:"column:wallet_id;type:uuid;not null;index"`
	AmountCents int64                   `gorm:"column:amount_cents;not null"`
	Source      enums.FundingSource     `gorm:"column:source;type:funding_source_enum;not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:'committed'"`
	PassID      *uuid.UUID              `gorm:"column:pass_id;type:uuid"`
	FeeSplit    json.RawMessage         `gorm:"column:fee_split;type:jsonb"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
