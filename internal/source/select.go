package source

import (
	"fmt"
	"strings"

	"procctl/internal/registry"
)

// Kind names a listing backend.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindTasklist Kind = "tasklist"
	KindPS       Kind = "ps"
	KindNative   Kind = "native"
)

// ParseKind validates a backend name; blank means auto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindTasklist, KindPS, KindNative:
		return k, nil
	default:
		return "", fmt.Errorf("unknown process source %q (want auto, tasklist, ps or native)", s)
	}
}

// New builds the lister for kind with the given exclusions.
func New(kind Kind, exclude []string) (registry.Lister, error) {
	ex := NewExclusions(exclude...)
	switch kind {
	case "", KindAuto:
		return NewCommandSource(DefaultFormat(), nil, ex), nil
	case KindTasklist:
		return NewCommandSource(Tasklist, nil, ex), nil
	case KindPS:
		return NewCommandSource(PS, nil, ex), nil
	case KindNative:
		return NewNativeSource(ex), nil
	default:
		return nil, fmt.Errorf("unknown process source %q", kind)
	}
}
