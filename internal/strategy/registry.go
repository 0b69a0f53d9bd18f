package strategy

import (
	"fmt"
	"strings"
)

var kinds = []Kind{
	KindAlwaysCooperate,
	KindAlwaysDefect,
	KindTitForTat,
	KindGrudger,
	KindDetective,
	KindSimpleton,
	KindRandom,
	KindCopykitten,
}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}()

// Kinds returns the built-in strategy kinds in a stable order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Parse resolves a strategy name to its kind.
func Parse(name string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := kindSet[kind]; !ok {
		return "", fmt.Errorf("unknown strategy kind: %s", name)
	}
	return kind, nil
}

// ParseAll resolves a list of names, rejecting duplicates.
func ParseAll(names []string) ([]Kind, error) {
	out := make([]Kind, 0, len(names))
	seen := make(map[Kind]struct{}, len(names))
	for _, name := range names {
		kind, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[kind]; dup {
			return nil, fmt.Errorf("duplicate strategy kind: %s", kind)
		}
		seen[kind] = struct{}{}
		out = append(out, kind)
	}
	return out, nil
}
