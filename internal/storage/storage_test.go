package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.UnixMilli(1700000000123)

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", extension("cat.png"))
	assert.Equal(t, "jpeg", extension("Holiday.JPEG"))
	assert.Equal(t, "gz", extension("archive.tar.gz"))
	assert.Equal(t, "jpg", extension("noext"))
	assert.Equal(t, "jpg", extension(""))
}

func TestOSSKey(t *testing.T) {
	assert.Equal(t, "images/1700000000123-abc123.png", ossKey("images", fixedNow, "abc123", "cat.png"))
	assert.Equal(t, "images/1700000000123-abc123.jpg", ossKey("images", fixedNow, "abc123", "blob"))
}

func TestBlobKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "photo.png", want: "uploads/1700000000123_photo.png"},
		{name: "unsafe chars dropped", in: "my photo (1)!.webp", want: "uploads/1700000000123_myphoto1.webp"},
		{name: "dots and dashes kept", in: "a.b-c.gif", want: "uploads/1700000000123_a.b-c.gif"},
		{name: "all unsafe", in: "照片.png", want: "uploads/1700000000123_file.png"},
		{name: "no extension", in: "scan", want: "uploads/1700000000123_scan.jpg"},
		{name: "path stripped", in: "../../etc/passwd", want: "uploads/1700000000123_passwd.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blobKey(fixedNow, tt.in))
		})
	}
}

func TestRandomSuffix(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-z]{6}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, re, randomSuffix())
	}
}
