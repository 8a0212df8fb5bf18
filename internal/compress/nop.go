package compress

// Nop stores cache payloads as plain JSON.
type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) Encode(data []byte) ([]byte, error) {
	return data, nil
}

func (Nop) Decode(data []byte) ([]byte, error) {
	return data, nil
}
