package ledger

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// BatchIDPrefix tags every generated batch id.
	BatchIDPrefix = "AGRI-"

	randomSuffixLength = 8
	base36Alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewBatchID builds an id from the base-36 millisecond clock followed by
// random base-36 characters, prefixed and uppercased.
func NewBatchID(now time.Time) (string, error) {
	buf := make([]byte, randomSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	for _, v := range buf {
		b.WriteByte(base36Alphabet[int(v)%len(base36Alphabet)])
	}

	return BatchIDPrefix + strings.ToUpper(b.String()), nil
}
