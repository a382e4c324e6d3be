package sync

import "math/rand/v2"

const tempNameLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// randomTempName returns a hidden name with six random letters. It only
// needs to avoid collisions, not to be unpredictable.
func randomTempName() string {
	var b [7]byte
	b[0] = '.'
	for i := 1; i < len(b); i++ {
		b[i] = tempNameLetters[rand.IntN(len(tempNameLetters))]
	}
	return string(b[:])
}
