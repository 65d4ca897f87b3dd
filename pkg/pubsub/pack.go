package pubsub

// Pack is a message on the bus. Messages with the same key keep their relative
// order, so the key is always the swap id.
type Pack struct {
	Key []byte
	Msg []byte
}
