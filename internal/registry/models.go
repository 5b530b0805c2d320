package registry

import (
	"strconv"
	"strings"
	"time"

	"courier/internal/transport"
)

// Share is one durable share record: an ordered list of vault refs published
// under an unguessable token. Records are immutable after creation; the only
// mutation is whole-record deletion.
type Share struct {
	ID        string
	Token     string
	Owner     transport.PrincipalID
	Refs      []transport.ItemRef
	Caption   string
	Kind      string
	CreatedAt time.Time
}

// Count returns the number of items bound to the share.
func (s *Share) Count() int {
	return len(s.Refs)
}

// Stats summarizes registry contents for diagnostics.
type Stats struct {
	Shares int
	Items  int
	Owners int
}

func encodeRefs(refs []transport.ItemRef) string {
	if len(refs) == 0 {
		return ""
	}
	parts := make([]string, len(refs))
	for i, ref := range refs {
		parts[i] = strconv.FormatInt(int64(ref), 10)
	}
	return strings.Join(parts, ",")
}

func decodeRefs(encoded string) ([]transport.ItemRef, error) {
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, ",")
	refs := make([]transport.ItemRef, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		refs = append(refs, transport.ItemRef(v))
	}
	return refs, nil
}
