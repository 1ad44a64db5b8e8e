// Package fingerprint derives the cache key for model analysis responses.
//
// The key covers only a small descriptor tuple. Two requests with the same
// ticker, golden-cross date, increase percent, sector and series length share
// a key even when the series contents differ.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

const separator = "-"

// Key returns the 32-character hex MD5 of the descriptor fields joined in fixed order.
func Key(ticker, goldenCrossDate string, increasePercent float64, sector string, dataLength int) string {
	content := strings.Join([]string{
		ticker,
		goldenCrossDate,
		strconv.FormatFloat(increasePercent, 'f', -1, 64),
		sector,
		strconv.Itoa(dataLength),
	}, separator)
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
