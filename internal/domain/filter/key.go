package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Key hashes the canonical form of s. Sets that select the same customers
// and produce the same warnings share a key. Member order, duplicates and
// letter case are not significant, nor are leading zeros in IDs.
func (s Set) Key() uint64 {
	return xxhash.Sum64String(s.canonical())
}

func (s Set) canonical() string {
	var b strings.Builder

	ids, invalid := ParseIDs(s.IDText)
	for _, id := range s.IDs {
		if c, ok := canonicalID(id); ok {
			ids = append(ids, c)
		} else {
			invalid = append(invalid, id)
		}
	}
	writeList(&b, "ids", ids)
	// Rejected tokens select nothing but still produce a warning.
	writeList(&b, "bad", invalid)

	risks := make([]string, 0, len(s.Risks))
	for _, r := range s.Risks {
		risks = append(risks, strconv.Itoa(int(r)))
	}
	writeList(&b, "risk", risks)

	segs := make([]string, 0, len(s.Segments))
	for _, v := range s.Segments {
		segs = append(segs, strconv.Itoa(int(v)))
	}
	writeList(&b, "seg", segs)

	genders := make([]string, 0, len(s.Genders))
	for _, g := range s.Genders {
		if g = normalizeLabel(g); g != "" {
			genders = append(genders, g)
		}
	}
	writeList(&b, "gender", genders)

	b.WriteString("p=" + s.Probability.String() + ";")
	b.WriteString("d=" + s.Days.String() + ";")
	b.WriteString("a=" + s.Amount.String() + ";")
	b.WriteString("act=" + strconv.FormatBool(s.ActionableOnly) + ";")
	top := s.TopN
	if top < 0 {
		top = 0
	}
	b.WriteString("top=" + strconv.Itoa(top) + ";")
	return b.String()
}

// writeList writes a sorted, deduplicated list.
func writeList(b *strings.Builder, name string, xs []string) {
	sort.Strings(xs)
	b.WriteString(name)
	b.WriteByte('=')
	prev := ""
	for i, x := range xs {
		if i > 0 && x == prev {
			continue
		}
		b.WriteString(x)
		b.WriteByte(',')
		prev = x
	}
	b.WriteByte(';')
}
