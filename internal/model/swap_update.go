package model

import "time"

type TransactionInfo struct {
	ID  string `json:"id"`
	Hex string `json:"hex,omitempty"`
	Eta int    `json:"eta,omitempty"`
}

type ChannelInfo struct {
	FundingTransactionID   string `json:"fundingTransactionId"`
	FundingTransactionVout int    `json:"fundingTransactionVout"`
}

// SwapUpdate is the public status of a swap.
type SwapUpdate struct {
	Status           string           `json:"status"`
	FailureReason    string           `json:"failureReason,omitempty"`
	ZeroConfRejected bool             `json:"zeroConfRejected,omitempty"`
	Transaction      *TransactionInfo `json:"transaction,omitempty"`
	Channel          *ChannelInfo     `json:"channel,omitempty"`
}

type SwapUpdateMessage struct {
	MessageID string     `json:"messageId"`
	SwapID    string     `json:"swapId"`
	Update    SwapUpdate `json:"update"`
	Timestamp time.Time  `json:"timestamp"`
}

type SwapOutcomeMessage struct {
	MessageID       string       `json:"messageId"`
	SwapID          string       `json:"swapId"`
	IsReverse       bool         `json:"isReverse"`
	Status          string       `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	ChannelCreation *ChannelInfo `json:"channelCreation,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
}

type ChannelBackupMessage struct {
	MessageID string    `json:"messageId"`
	Currency  string    `json:"currency"`
	Backup    string    `json:"backup"`
	Timestamp time.Time `json:"timestamp"`
}
