package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deduplicator filters transcript records. Resumed sessions replay earlier
// records verbatim, and a streamed assistant message is written as one
// record per content block, each repeating the message's token usage.
type Deduplicator struct {
	seen  map[string]struct{}
	usage map[string]struct{}
}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seen:  make(map[string]struct{}),
		usage: make(map[string]struct{}),
	}
}

// Seen reports whether a record has already been accepted, and records it
// if not. Records are keyed by uuid, or by a content hash when they carry
// none.
func (d *Deduplicator) Seen(uuid string, line []byte) bool {
	key := uuid
	if key == "" {
		key = hashRecord(line)
	}
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// CountUsage reports whether usage for messageID should be added to the
// totals. It is true once per message; records without an id always count.
func (d *Deduplicator) CountUsage(messageID string) bool {
	if messageID == "" {
		return true
	}
	if _, ok := d.usage[messageID]; ok {
		return false
	}
	d.usage[messageID] = struct{}{}
	return true
}

func hashRecord(line []byte) string {
	sum := sha256.Sum256(line)
	return hex.EncodeToString(sum[:])
}
