// Package content implements the pure (non-storage) half of content
// addressing and binary filtering (spec.md §3.2, SPEC_FULL.md §C.4):
// hashing, binary/base64 detection, and placeholder construction. The
// reference-counted persistence lives in internal/store, which calls
// into this package.
package content

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
)

// LargeResultThreshold is the size, in bytes, above which a tool-call
// result is routed through the content-blob store even when it isn't
// binary-filtered (spec.md §3.2/§4.3: "routing large results through
// the blob store"). There is no size threshold named in spec.md itself
// beyond "large", so this picks a conservative floor well below what
// would bloat a tool_calls row, keyed the same way every other
// content-addressed payload is.
const LargeResultThreshold = 256

// Hash returns the hex-encoded SHA-256 digest used as a content_blobs
// primary key.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// magicSignature is one entry in the magic-byte sniff table.
type magicSignature struct {
	mediaType string
	prefix    []byte
}

var magicTable = []magicSignature{
	{"image/png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}},
	{"image/jpeg", []byte{0xFF, 0xD8, 0xFF}},
	{"image/gif", []byte("GIF8")},
	{"application/pdf", []byte("%PDF-")},
	{"application/zip", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"image/webp", []byte("RIFF")}, // followed by "WEBP" at offset 8, checked below
}

// sniffMagic inspects the leading bytes of payload and returns a media
// type, or "" if none of the known signatures match.
func sniffMagic(payload []byte) string {
	for _, sig := range magicTable {
		if len(payload) < len(sig.prefix) {
			continue
		}
		match := true
		for i, b := range sig.prefix {
			if payload[i] != b {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if sig.mediaType == "image/webp" {
			if len(payload) < 12 || string(payload[8:12]) != "WEBP" {
				continue
			}
		}
		return sig.mediaType
	}
	return ""
}

// isBase64Char is used to validate a run of text as plausible base64.
func isBase64Char(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '+' || b == '/' || b == '=':
		return true
	}
	return false
}

// looksLikeBase64 implements the heuristic from SPEC_FULL.md §C.4: the
// whole string is at least 500 base64-alphabet characters, its length
// (padding included) is a multiple of 4, and it decodes as standard
// base64.
func looksLikeBase64(s string) bool {
	if len(s) < 500 {
		return false
	}
	trimmed := 0
	for i := 0; i < len(s); i++ {
		if !isBase64Char(s[i]) {
			return false
		}
		if s[i] != '=' {
			trimmed++
		}
	}
	if len(s)%4 != 0 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

// Placeholder is the metadata recorded in place of filtered binary
// content (spec.md §3.2).
type Placeholder struct {
	OriginalType   string `json:"original_type"`
	MediaType      string `json:"media_type,omitempty"`
	OriginalSize   int    `json:"original_size"`
	FilteredReason string `json:"filtered_reason"`
}

// FilterResult is what DetectAndFilter returns: either the content is
// passed through unchanged, or a placeholder is substituted.
type FilterResult struct {
	Filtered    bool
	Payload     []byte // unchanged payload, or the placeholder JSON
	Placeholder *Placeholder
}

// DetectAndFilter inspects a content payload tagged with blockType (the
// block's declared type, e.g. "image", "document", "text") and decides
// whether to replace it with a metadata placeholder: typed image/
// document blocks are always filtered; text content is filtered only
// when it sniffs as binary magic bytes or passes the base64-run
// heuristic.
func DetectAndFilter(blockType string, payload []byte) FilterResult {
	text := string(payload)

	switch blockType {
	case "image", "document":
		ph := &Placeholder{
			OriginalType:   blockType,
			MediaType:      sniffMagic(payload),
			OriginalSize:   len(payload),
			FilteredReason: "typed_binary_block",
		}
		return finish(ph)
	}

	if mt := sniffMagic(payload); mt != "" {
		ph := &Placeholder{
			OriginalType:   blockType,
			MediaType:      mt,
			OriginalSize:   len(payload),
			FilteredReason: "magic_bytes",
		}
		return finish(ph)
	}

	if looksLikeBase64(text) {
		ph := &Placeholder{
			OriginalType:   blockType,
			OriginalSize:   len(payload),
			FilteredReason: "base64_heuristic",
		}
		return finish(ph)
	}

	return FilterResult{Filtered: false, Payload: payload}
}

func finish(ph *Placeholder) FilterResult {
	encoded, _ := json.Marshal(ph)
	return FilterResult{Filtered: true, Payload: encoded, Placeholder: ph}
}
