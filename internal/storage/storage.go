// Package storage uploads image blobs to object storage and returns the URL
// they are served from. Two providers exist: OSSStorage writes to an
// S3-compatible OSS bucket behind a CDN, BlobStorage writes to a second
// S3-compatible store with retried uploads and resolved download URLs.
package storage

import (
	"context"
	"math/rand"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Uploader is the interface for storing a blob and getting its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName, contentType string) (string, error)
}

const defaultExt = "jpg"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// extension returns the lowercased extension of name without the dot, or jpg.
func extension(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return defaultExt
	}
	return strings.ToLower(ext)
}

// ossKey builds "{namespace}/{unixMillis}-{suffix}.{ext}".
func ossKey(namespace string, now time.Time, suffix, fileName string) string {
	return namespace + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix + "." + extension(fileName)
}

// blobKey builds "uploads/{unixMillis}_{sanitizedBaseName}.{ext}".
func blobKey(now time.Time, fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	base = unsafeNameChars.ReplaceAllString(base, "")
	if base == "" || base == "." {
		base = "file"
	}
	return "uploads/" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + base + "." + extension(fileName)
}

// randomSuffix returns six base36 characters.
func randomSuffix() string {
	s := strconv.FormatUint(rand.Uint64(), 36)
	for len(s) < 6 {
		s = "0" + s
	}
	return s[len(s)-6:]
}
