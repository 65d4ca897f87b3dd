package entity

import "database/sql"

type ChannelCreation struct {
	SwapID string `gorm:"primaryKey"`

	Type             string
	Private          bool
	InboundLiquidity int

	FundingTransactionID   sql.NullString
	FundingTransactionVout sql.NullInt32
}
