package imapstate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrSeqSet is returned for malformed sequence sets.
var ErrSeqSet = errors.New("imapstate: malformed sequence set")

// FormatSeqSet renders b as an IMAP sequence set such as "1:5,7,9:12".
// Runs of consecutive UIDs collapse to ranges. An empty set renders as "".
func FormatSeqSet(b *roaring.Bitmap) string {
	if b == nil || b.IsEmpty() {
		return ""
	}

	var sb strings.Builder
	it := b.Iterator()
	start := it.Next()
	prev := start
	flush := func() {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(start), 10))
		if prev != start {
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatUint(uint64(prev), 10))
		}
	}
	for it.HasNext() {
		v := it.Next()
		if v == prev+1 {
			prev = v
			continue
		}
		flush()
		start, prev = v, v
	}
	flush()
	return sb.String()
}

// ParseSeqSet parses a sequence set of UIDs. Ranges may be given in either
// order. The "*" wildcard is not accepted, since a stored set is always
// concrete.
func ParseSeqSet(s string) (*roaring.Bitmap, error) {
	b := roaring.New()
	if s == "" {
		return b, nil
	}
	for _, item := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(item, ":")
		first, err := parseUID(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parseUID(hi); err != nil {
				return nil, err
			}
		}
		if first > last {
			first, last = last, first
		}
		b.AddRange(uint64(first), uint64(last)+1)
	}
	return b, nil
}

func parseUID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %q", ErrSeqSet, s)
	}
	return uint32(v), nil
}
