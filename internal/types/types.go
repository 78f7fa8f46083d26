package types

type Key []byte
type Value []byte

// Record is one key-value pair as stored on disk.
type Record struct {
	Key   Key
	Value Value
}
