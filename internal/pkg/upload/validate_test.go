package upload

import (
	"bytes"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFixture(t *testing.T, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(8, 8, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestValidateImageBySniff(t *testing.T) {
	t.Parallel()

	jpg := encodeFixture(t, imaging.JPEG)
	png := encodeFixture(t, imaging.PNG)

	tests := []struct {
		name     string
		filename string
		head     []byte
		wantMime string
		wantErr  bool
	}{
		{name: "jpeg", filename: "photo.jpg", head: jpg, wantMime: "image/jpeg"},
		{name: "jpeg alternate extension", filename: "photo.jfif", head: jpg, wantMime: "image/jpeg"},
		{name: "png", filename: "photo.png", head: png, wantMime: "image/png"},
		{name: "unsupported extension", filename: "photo.tiff", head: jpg, wantErr: true},
		{name: "svg is rejected", filename: "photo.png", head: []byte(`<?xml version="1.0"?><svg></svg>`), wantErr: true},
		{name: "html is rejected", filename: "photo.png", head: []byte("<!DOCTYPE html><html></html>"), wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mime, err := ValidateImageBySniff(tt.filename, tt.head)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, mime)
		})
	}
}

func TestValidateImageBySniffExtensionMismatch(t *testing.T) {
	t.Parallel()

	// Allowed extension but the sniffed content is an unsupported type.
	_, err := ValidateImageBySniff("photo.jpg", []byte("%PDF-1.4 not an image"))
	assert.Error(t, err)
}
