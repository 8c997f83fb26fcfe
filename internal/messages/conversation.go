package messages

import (
	"math/big"
	"strings"

	pkgerrors "github.com/angelmondragon/dmmedia/pkg/errors"
)

// OneToOneConversationID builds the id of the private conversation between two users:
// both numeric ids joined by "-", smaller first.
func OneToOneConversationID(a, b string) (string, error) {
	left, ok := parseUserID(a)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid user id").WithDetails(map[string]any{"user_id": a})
	}
	right, ok := parseUserID(b)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid user id").WithDetails(map[string]any{"user_id": b})
	}
	if left.Cmp(right) > 0 {
		left, right = right, left
	}
	return left.String() + "-" + right.String(), nil
}

func parseUserID(value string) (*big.Int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	id, ok := new(big.Int).SetString(value, 10)
	if !ok || id.Sign() <= 0 {
		return nil, false
	}
	return id, true
}
