// Package codec implements SequenceCodec (spec §4.5): canonical parse/format
// of sequences with round annotations and an attribute tail.
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
)

// FormatMode controls how much annotation Format emits.
type FormatMode int

const (
	// All emits Name, ID and TR for every item plus the trailing GR.
	All FormatMode = iota
	// Bare emits only transform names, no annotation.
	Bare
	// IDTR emits ID and TR per item, no GR, no attributes.
	IDTR
	// IDTRGR emits ID, TR per item plus the trailing GR.
	IDTRGR
)

// NameResolver resolves a transform name to its id, the way
// TransformRegistry.NameToID does. Parsing depends on this only when a
// Name appears without an explicit (ID:...).
type NameResolver interface {
	NameToID(name string) (id uint8, ok bool, ambiguous bool)
	Get(id uint8) (model.Transform, bool)
}

// InferFlags is accepted by Parse for TR/GR default injection. Parse
// currently fills an absent TR or GR with 1 whether or not these flags are
// set, so they do not change its result.
type InferFlags struct {
	InferTRounds bool
	InferGRounds bool
}

const (
	defaultTR = 1
	defaultGR = 1
)

// recognizedAttributes lists the right-side "(Attr:value)" keys Parse
// accepts. Anything else is ErrUnknownAttribute.
var recognizedAttributes = map[string]bool{
	"GR": true,
}

// Parse parses a canonical sequence string, resolving bare names against
// resolver when an explicit "(ID:n)" is absent.
func Parse(s string, resolver NameResolver, flags InferFlags) (model.Sequence, error) {
	body, attrTail, _ := strings.Cut(s, "|")
	body = strings.TrimSpace(body)
	attrTail = strings.TrimSpace(attrTail)

	var seq model.Sequence

	if body != "" {
		parts := strings.Split(body, "->")
		for _, p := range parts {
			item, err := parseItem(strings.TrimSpace(p), resolver, flags)
			if err != nil {
				return model.Sequence{}, err
			}

			seq.Items = append(seq.Items, item)
		}
	}

	gr := uint8(0)

	if attrTail != "" {
		for _, tok := range splitParenTokens(attrTail) {
			key, val, ok := strings.Cut(tok, ":")
			if !ok {
				continue
			}

			key = strings.TrimSpace(key)
			val = strings.TrimSpace(val)

			if !recognizedAttributes[key] {
				return model.Sequence{}, fmt.Errorf("%w: %s", errs.ErrUnknownAttribute, key)
			}

			if key == "GR" {
				n, err := strconv.Atoi(val)
				if err != nil {
					return model.Sequence{}, fmt.Errorf("%w: GR value %q", errs.ErrParse, val)
				}

				gr = uint8(n)
			}
		}
	}

	if gr == 0 {
		if flags.InferGRounds {
			gr = defaultGR
		} else {
			gr = defaultGR
		}
	}

	seq.GR = gr

	return seq, nil
}

// parseItem parses one "Name(ID:i)(TR:t)" segment. (ID:...) may be omitted
// if Name resolves uniquely against resolver.
func parseItem(segment string, resolver NameResolver, flags InferFlags) (model.SeqItem, error) {
	name, rest := splitNameAndParens(segment)

	var (
		id      uint8
		idKnown bool
	)

	tr := uint8(0)

	for _, tok := range splitParenTokens(rest) {
		key, val, ok := strings.Cut(tok, ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "ID":
			n, err := strconv.Atoi(val)
			if err != nil {
				return model.SeqItem{}, fmt.Errorf("%w: ID value %q", errs.ErrParse, val)
			}

			id = uint8(n)
			idKnown = true
		case "TR":
			n, err := strconv.Atoi(val)
			if err != nil {
				return model.SeqItem{}, fmt.Errorf("%w: TR value %q", errs.ErrParse, val)
			}

			tr = uint8(n)
		default:
			return model.SeqItem{}, fmt.Errorf("%w: %s", errs.ErrUnknownAttribute, key)
		}
	}

	if !idKnown {
		if resolver == nil {
			return model.SeqItem{}, fmt.Errorf("%w: %q has no (ID:...) and no resolver was given", errs.ErrParse, name)
		}

		resolvedID, ok, ambiguous := resolver.NameToID(name)
		if ambiguous {
			return model.SeqItem{}, fmt.Errorf("%w: %q", errs.ErrAmbiguousName, name)
		}

		if !ok {
			return model.SeqItem{}, fmt.Errorf("%w: unresolved name %q", errs.ErrParse, name)
		}

		id = resolvedID
	}

	if tr == 0 {
		tr = defaultTR
		_ = flags.InferTRounds // default applies regardless of the flag.
	}

	return model.SeqItem{ID: id, TR: tr}, nil
}

// splitNameAndParens splits "Name(a:b)(c:d)" into ("Name", "(a:b)(c:d)").
func splitNameAndParens(s string) (name, rest string) {
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}

	return strings.TrimSpace(s[:idx]), s[idx:]
}

// splitParenTokens splits "(a:b)(c:d)" into ["a:b", "c:d"].
func splitParenTokens(s string) []string {
	var toks []string

	for {
		s = strings.TrimSpace(s)
		if s == "" {
			break
		}

		if s[0] != '(' {
			break
		}

		end := strings.IndexByte(s, ')')
		if end < 0 {
			break
		}

		toks = append(toks, s[1:end])
		s = s[end+1:]
	}

	return toks
}

// Format renders seq in canonical form per fmtMode, resolving names via
// resolver (nil resolver falls back to "T<id>").
func Format(seq model.Sequence, resolver NameResolver, fmtMode FormatMode) string {
	var b strings.Builder

	for i, item := range seq.Items {
		if i > 0 {
			b.WriteString(" -> ")
		}

		b.WriteString(nameFor(resolver, item.ID))

		if fmtMode == Bare {
			continue
		}

		fmt.Fprintf(&b, "(ID:%d)", item.ID)

		if fmtMode == IDTR || fmtMode == IDTRGR || fmtMode == All {
			fmt.Fprintf(&b, "(TR:%d)", item.TR)
		}
	}

	if fmtMode == All || fmtMode == IDTRGR {
		b.WriteString(fmt.Sprintf(" | (GR:%d)", seq.GR))
	}

	return b.String()
}

func nameFor(resolver NameResolver, id uint8) string {
	if resolver == nil {
		return fmt.Sprintf("T%d", id)
	}

	t, ok := resolver.Get(id)
	if !ok {
		return fmt.Sprintf("T%d", id)
	}

	return t.Name
}

// Canonical is shorthand for Format(seq, resolver, All), the round-trip
// target per spec §4.5/§8.
func Canonical(seq model.Sequence, resolver NameResolver) string {
	return Format(seq, resolver, All)
}
