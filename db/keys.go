package db

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"jaytaylor.com/wikigraph/domain"
)

// Keys are laid out as <lang> 0x00 <big-endian fields...> so that a language
// prefix scan returns rows in id order.

func langPrefix(lang domain.Language) []byte {
	k := make([]byte, 0, len(lang)+1)
	k = append(k, lang...)
	return append(k, 0)
}

func pageKey(lang domain.Language, id int) []byte {
	return binary.BigEndian.AppendUint64(langPrefix(lang), uint64(id))
}

func pageKeyID(key []byte) (domain.Language, int, error) {
	lang, rest, err := splitLang(key)
	if err != nil {
		return "", 0, err
	}
	if len(rest) != 8 {
		return "", 0, fmt.Errorf("malformed page key %q", key)
	}
	return lang, int(binary.BigEndian.Uint64(rest)), nil
}

func titleKey(lang domain.Language, ns domain.Namespace, title string) []byte {
	k := binary.BigEndian.AppendUint32(langPrefix(lang), uint32(int32(ns))^(1<<31))
	return append(k, domain.CanonicalTitle(title)...)
}

func linkPrefix(lang domain.Language, src int) []byte {
	return pageKey(lang, src)
}

// linkKey identifies a link by its fingerprint.  Red links all share a
// fingerprint per source, so they are told apart by destination title.
func linkKey(link *domain.LocalLink) []byte {
	k := binary.BigEndian.AppendUint64(linkPrefix(link.Language, link.SourceID), link.Fingerprint())
	if link.IsRedLink() {
		k = binary.BigEndian.AppendUint64(k, domain.TitleHash(link.DestTitle))
	}
	return k
}

func splitLang(key []byte) (domain.Language, []byte, error) {
	for i, b := range key {
		if b == 0 {
			return domain.Language(key[:i]), key[i+1:], nil
		}
	}
	return "", nil, fmt.Errorf("key %q has no language separator", key)
}

func encodeID(id int) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(int64(id)))
}

func decodeID(v []byte) (int, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("malformed id value of length %v", len(v))
	}
	return int(int64(binary.BigEndian.Uint64(v))), nil
}

func encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
