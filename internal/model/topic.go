package model

var (
	SwapUpdateTopic    = "swap.update"
	SwapSuccessTopic   = "swap.success"
	SwapFailureTopic   = "swap.failure"
	ChannelBackupTopic = "channel.backup"

	// Requests to the invoice layer.
	InvoiceSettleTopic = "invoice.settle"

	// Events of the invoice layer.
	SwapInvoiceTopic = "swap.invoice"
)
