package label

const symbolBase = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// surrogates
const (
	surrogateLo = 0xD800
	surrogateHi = 0xDFFF
)

// Symbol returns the i-th einsum symbol: a-z, A-Z, then code points from
// U+00C0 upwards with the UTF-16 surrogate block skipped.
func Symbol(i int) string {
	if i < len(symbolBase) {
		return symbolBase[i : i+1]
	}
	r := rune(i + 140)
	if r >= surrogateLo {
		r += surrogateHi - surrogateLo + 1
	}
	return string(r)
}

// Symbols mints labels by first-appearance ordinal, ignoring the raw value.
func Symbols[K comparable](_ K, ordinal int) string {
	return Symbol(ordinal)
}
