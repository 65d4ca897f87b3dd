package model

// InvoiceSettleRequest asks the invoice layer to settle the hold invoice of a
// reverse swap with the preimage revealed on chain.
type InvoiceSettleRequest struct {
	MessageID     string `json:"messageId"`
	ReverseSwapID string `json:"reverseSwapId"`
	Preimage      string `json:"preimage"`
}

// InvoiceMessage is an event of the invoice layer. Data depends on Op.
type InvoiceMessage struct {
	Op        string         `json:"op"`
	SwapID    string         `json:"swapId"`
	IsReverse bool           `json:"isReverse"`
	Data      map[string]any `json:"data"`
}

type InvoiceFailedData struct {
	Reason string `mapstructure:"reason"`
}

type ClaimData struct {
	TransactionID string `mapstructure:"transactionId"`
}

type CoinsSentData struct {
	TransactionID  string `mapstructure:"transactionId"`
	TransactionHex string `mapstructure:"transactionHex"`
}

type CoinsFailedToSendData struct {
	Reason string `mapstructure:"reason"`
}

type RefundData struct {
	TransactionID string `mapstructure:"transactionId"`
}

type ZeroConfRejectedData struct {
	TransactionID  string `mapstructure:"transactionId"`
	TransactionHex string `mapstructure:"transactionHex"`
}

type ChannelCreatedData struct {
	FundingTransactionID   string `mapstructure:"fundingTransactionId"`
	FundingTransactionVout int    `mapstructure:"fundingTransactionVout"`
}

type ChannelBackupData struct {
	Currency string `mapstructure:"currency"`
	Backup   string `mapstructure:"backup"`
}
