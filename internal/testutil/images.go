// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

// CreateTestJPEG returns a small encoded JPEG.
func CreateTestJPEG() []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(64, 64), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// CreateTestPNG returns a solid red square encoded as PNG.
func CreateTestPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// CreateCorruptedImage keeps the JPEG header but overwrites the body.
func CreateCorruptedImage() []byte {
	corrupted := CreateTestJPEG()
	for i := len(corrupted) / 4; i < len(corrupted)*3/4; i++ {
		corrupted[i] = 0xFF
	}
	return corrupted
}
