package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter joins the fields of a callback token. The action comes first,
// then zero to two identifiers. Both encoding and decoding live here; the
// transport treats tokens as opaque strings.
const Delimiter = ":"

// Action identifies what a pressed button asks for.
type Action string

const (
	ActionShops                Action = "shops"
	ActionShop                 Action = "shop"
	ActionCategory             Action = "category"
	ActionProduct              Action = "product"
	ActionOrder                Action = "order"
	ActionAddCategory          Action = "add_category"
	ActionAddProduct           Action = "add_product"
	ActionAddProductToCategory Action = "add_product_category"
	ActionSkipDescription      Action = "skip_description"
	ActionSkipIcon             Action = "skip_icon"
	ActionStats                Action = "stats"
	ActionSettings             Action = "settings"
	ActionStaff                Action = "staff"
	ActionAnalytics            Action = "analytics"
	ActionAnnounce             Action = "announce"
	ActionRefreshOwners        Action = "refresh_owners"
)

// Token is a decoded callback payload.
type Token struct {
	Action Action
	Args   []string
}

// Arg returns the i-th identifier, or "" when absent.
func (t Token) Arg(i int) string {
	if i < 0 || i >= len(t.Args) {
		return ""
	}
	return t.Args[i]
}

// ErrEmptyToken is returned when a callback payload has no content.
var ErrEmptyToken = errors.New("chat: empty callback token")

// EncodeToken builds the wire form of a callback token.
func EncodeToken(action Action, args ...string) string {
	parts := make([]string, 0, 1+len(args))
	parts = append(parts, string(action))
	parts = append(parts, args...)
	return strings.Join(parts, Delimiter)
}

// DecodeToken parses a callback payload received from the transport. The
// action is not validated against the known set here; the dispatcher owns
// routing and answers unknown actions explicitly.
func DecodeToken(payload string) (Token, error) {
	if payload == "" {
		return Token{}, ErrEmptyToken
	}
	parts := strings.Split(payload, Delimiter)
	if parts[0] == "" {
		return Token{}, fmt.Errorf("chat: malformed callback token %q", payload)
	}
	return Token{Action: Action(parts[0]), Args: parts[1:]}, nil
}
