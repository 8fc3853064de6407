package sequence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultPrefix is used when neither a configured prefix nor a usable tenant
// id is available.
const DefaultPrefix = "CTR"

// Format derives contract numbers of the form {PREFIX}-{YY}-{SEQ:04d}.
type Format struct {
	// Prefix overrides the tenant derived prefix when set.
	Prefix string
}

// PrefixFor returns the configured prefix, or the first three alphanumerics
// of tenantID upper-cased.
func (f Format) PrefixFor(tenantID string) string {
	if p := strings.TrimSpace(f.Prefix); p != "" {
		return strings.ToUpper(p)
	}

	var b strings.Builder
	for _, r := range tenantID {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == 3 {
			return b.String()
		}
	}
	return DefaultPrefix
}

// Year returns the two digit UTC year segment.
func Year(at time.Time) string {
	return at.UTC().Format("06")
}

// Base returns "{prefix}-{yy}-", the part shared by every number of a year.
func Base(prefix, yy string) string {
	return fmt.Sprintf("%s-%s-", prefix, yy)
}

func FormatNumber(prefix, yy string, seq int64) string {
	return fmt.Sprintf("%s%04d", Base(prefix, yy), seq)
}

// ParseSequence extracts the numeric tail of number when it starts with base.
func ParseSequence(number, base string) (int64, bool) {
	if !strings.HasPrefix(number, base) {
		return 0, false
	}
	seq, err := strconv.ParseInt(number[len(base):], 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
