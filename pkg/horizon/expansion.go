package horizon

import (
	"fmt"
	"strings"

	"github.com/lintang-b-s/ehorizon/pkg/util"
)

// Expansion. how far the horizon tree branches out.
type Expansion uint8

const (
	// only the most probable successor of each segment is expanded further.
	LIMITED Expansion = iota
	// every successor is expanded.
	FULL
)

func (e Expansion) String() string {
	switch e {
	case LIMITED:
		return "LIMITED"
	case FULL:
		return "FULL"
	default:
		return fmt.Sprintf("Expansion(%d)", uint8(e))
	}
}

func ParseExpansion(s string) (Expansion, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIMITED":
		return LIMITED, nil
	case "FULL":
		return FULL, nil
	default:
		return LIMITED, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown expansion %q", s)
	}
}

func (e Expansion) MarshalText() ([]byte, error) {
	if e != LIMITED && e != FULL {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "unknown expansion %d", uint8(e))
	}
	return []byte(e.String()), nil
}

func (e *Expansion) UnmarshalText(text []byte) error {
	parsed, err := ParseExpansion(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
