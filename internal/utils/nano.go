package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

var (
	NanoidSize     = 32
	nanoidAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

func NanoID() string {
	return NanoIDSize(NanoidSize)
}

func NanoIDSize(size int) string {
	if size == 0 {
		size = NanoidSize
	}

	return gonanoid.MustGenerate(nanoidAlphabet, size)
}

// RandomSuffix returns a short lowercase token used to make object names
// collision resistant.
func RandomSuffix(size int) string {
	return gonanoid.MustGenerate(suffixAlphabet, size)
}
