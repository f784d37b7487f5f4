package common

const (
	// PINMin and PINMax bound the one-time PIN issued at registration and reset.
	PINMin = 100000
	PINMax = 999999

	// KeySize is the length in bytes of symmetric record keys.
	KeySize = 32
)
