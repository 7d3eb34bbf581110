package domain

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// LinkType distinguishes ordinary article links from category membership.
type LinkType uint8

const (
	LinkInternal LinkType = iota
	LinkCategory
)

func (t LinkType) String() string {
	switch t {
	case LinkCategory:
		return "category"
	default:
		return "internal"
	}
}

// LocalLink is a directed edge between two pages of the same language.
// DestID is Unresolved for red links, in which case DestTitle is the only
// record of where the link pointed.
type LocalLink struct {
	Language   Language `msgpack:"lang"`
	SourceID   int      `msgpack:"src"`
	DestID     int      `msgpack:"dst"`
	DestTitle  string   `msgpack:"dst_title,omitempty"`
	Type       LinkType `msgpack:"type"`
	AnchorText string   `msgpack:"anchor,omitempty"`
	Location   int      `msgpack:"loc"`
	Parseable  bool     `msgpack:"parseable"`
}

// IsRedLink reports whether the destination could not be resolved.
func (l *LocalLink) IsRedLink() bool {
	return l.DestID == Unresolved
}

// Fingerprint returns the 64-bit edge hash used for duplicate detection.  Only
// the edge identity participates; anchor text, location and provenance do not.
func (l *LocalLink) Fingerprint() uint64 {
	return EdgeFingerprint(l.Language, l.SourceID, l.DestID, l.Type)
}

// EdgeFingerprint hashes (language, source, destination, type).
func EdgeFingerprint(lang Language, src int, dst int, typ LinkType) uint64 {
	buf := make([]byte, 0, len(lang)+1+8+8+1)
	buf = append(buf, lang...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, uint64(int64(src)))
	buf = binary.BigEndian.AppendUint64(buf, uint64(int64(dst)))
	buf = append(buf, byte(typ))
	return xxhash.Sum64(buf)
}

// DedupKey identifies the link for duplicate detection.  Resolved links use
// their Fingerprint.  Red links all share one fingerprint per source, so the
// destination title is mixed in.
func (l *LocalLink) DedupKey() uint64 {
	fp := l.Fingerprint()
	if !l.IsRedLink() {
		return fp
	}
	buf := binary.BigEndian.AppendUint64(make([]byte, 0, 16), fp)
	buf = binary.BigEndian.AppendUint64(buf, TitleHash(l.DestTitle))
	return xxhash.Sum64(buf)
}

// TitleHash hashes the canonical form of a title.
func TitleHash(title string) uint64 {
	return xxhash.Sum64String(CanonicalTitle(title))
}
