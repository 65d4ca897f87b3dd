package swapevent

type Event interface {
	Op() string
	SwapID() string
}
