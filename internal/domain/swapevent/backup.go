package swapevent

// ChannelBackup is a static channel backup of the lightning node of a
// currency. It is forwarded to clients as it is and never touches the ledger.
type ChannelBackup struct {
	Currency string
	Backup   string
}
