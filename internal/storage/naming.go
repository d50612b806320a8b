package storage

import (
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// PhotoPrefix is the key prefix under which evidence photos are stored.
const PhotoPrefix = "uploads"

// UniqueFilename derives a collision-free name from an uploaded file name,
// for example "pump.jpg" becomes "pump_20250115_103000_1a2b3c4d.jpg". The
// extension is lower-cased; directory components and characters other than
// letters, digits, '-' and '_' are dropped.
func UniqueFilename(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			return r
		}
		return -1
	}, strings.TrimSpace(stem))
	if stem == "" {
		stem = "photo"
	}
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return stem + "_" + now.UTC().Format("20060102_150405") + "_" + short + ext
}

// PhotoKey returns the storage key for a photo file name.
func PhotoKey(filename string) string {
	return path.Join(PhotoPrefix, filename)
}
