// Package record implements the fixed-layout authenticated record exchanged
// between parties:
//
//	| content 1024 | \t | mac 7 | \t | device id 7 | sha256 hex 64 |
//
// The checksum covers the tab-joined fields exactly as transmitted.
package record

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/samber/oops"
)

const (
	ContentSize  = 1024
	FieldSize    = 7
	ChecksumSize = 64
	// TextSize is the checksummed prefix of a record.
	TextSize = ContentSize + 1 + FieldSize + 1 + FieldSize
	Size     = TextSize + ChecksumSize
)

const separator = '\t'

var (
	ErrField    = errors.New("record: mac and device id must be 7 bytes without tabs")
	ErrSize     = errors.New("record: wrong record size")
	ErrChecksum = errors.New("record: checksum mismatch")
	ErrLayout   = errors.New("record: malformed field layout")
)

type Record struct {
	Content  string
	MAC      string
	DeviceID string
}

// Build splits content into 1024-byte chunks and returns one checksummed
// record per chunk. The last chunk is padded with spaces; empty content still
// produces a single, all-space record.
func Build(content, mac, deviceID string) ([][]byte, error) {
	if err := checkField(mac); err != nil {
		return nil, oops.Wrapf(err, "mac %q", mac)
	}
	if err := checkField(deviceID); err != nil {
		return nil, oops.Wrapf(err, "device id %q", deviceID)
	}

	raw := []byte(content)
	var records [][]byte
	for i := 0; i == 0 || i < len(raw); i += ContentSize {
		end := i + ContentSize
		if end > len(raw) {
			end = len(raw)
		}
		records = append(records, seal(raw[i:end], mac, deviceID))
	}
	return records, nil
}

func checkField(f string) error {
	if len(f) != FieldSize || strings.IndexByte(f, separator) >= 0 {
		return ErrField
	}
	return nil
}

func seal(chunk []byte, mac, deviceID string) []byte {
	rec := make([]byte, 0, Size)
	rec = append(rec, chunk...)
	rec = append(rec, bytes.Repeat([]byte{' '}, ContentSize-len(chunk))...)
	rec = append(rec, separator)
	rec = append(rec, mac...)
	rec = append(rec, separator)
	rec = append(rec, deviceID...)
	return append(rec, Checksum(rec)...)
}

// Checksum returns the lowercase hex SHA-256 of text.
func Checksum(text []byte) []byte {
	sum := sha256.Sum256(text)
	out := make([]byte, ChecksumSize)
	hex.Encode(out, sum[:])
	return out
}

// Validate checks the size and checksum of a single record.
func Validate(rec []byte) error {
	if len(rec) != Size {
		return oops.Wrapf(ErrSize, "got %d bytes, want %d", len(rec), Size)
	}
	text, sum := rec[:TextSize], rec[TextSize:]
	if subtle.ConstantTimeCompare(Checksum(text), sum) != 1 {
		return ErrChecksum
	}
	return nil
}

// Parse validates rec and splits it into its fields. Content padding is
// trimmed.
func Parse(rec []byte) (*Record, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}
	if rec[ContentSize] != separator || rec[ContentSize+1+FieldSize] != separator {
		return nil, ErrLayout
	}
	mac := rec[ContentSize+1 : ContentSize+1+FieldSize]
	dev := rec[ContentSize+2+FieldSize : TextSize]
	return &Record{
		Content:  strings.TrimRight(string(rec[:ContentSize]), " "),
		MAC:      string(mac),
		DeviceID: string(dev),
	}, nil
}

// Join concatenates the contents of consecutive records.
func Join(records []*Record) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(r.Content)
	}
	return sb.String()
}
