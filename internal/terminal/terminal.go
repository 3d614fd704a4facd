// Package terminal detects what the terminal can draw and encodes artwork
// for the kitty graphics protocol.
package terminal

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
)

const (
	kittyChunkSize = 4096
	// approximate pixel size of one terminal cell
	cellWidthPx  = 10
	cellHeightPx = 20
	minImagePx   = 10
)

var ErrEmptyImage = errors.New("empty image")

type Capabilities struct {
	KittyGraphics bool
	TrueColor     bool
	TermProgram   string
}

// Detect reads the terminal's capabilities from the environment. Kitty
// graphics are only used when kittyOptIn is set.
func Detect(getenv func(string) string, kittyOptIn bool) *Capabilities {
	caps := &Capabilities{
		TermProgram: getenv("TERM_PROGRAM"),
		TrueColor:   isTrueColor(getenv("COLORTERM")),
	}

	if kittyOptIn {
		caps.KittyGraphics = true
		if caps.TermProgram == "" {
			caps.TermProgram = "kitty"
		}
	}

	return caps
}

func isTrueColor(colorterm string) bool {
	switch strings.ToLower(colorterm) {
	case "truecolor", "24bit":
		return true
	default:
		return false
	}
}

// Reset restores the cursor, colors, main screen and mouse reporting after
// the viewer was interrupted.
func Reset(w io.Writer) {
	for _, seq := range []string{
		"\033[?25h",
		"\033[0m",
		"\033[?1049l",
		"\033[?1000l",
		"\033[?1002l",
		"\033[?1003l",
		"\033[?1006l",
	} {
		io.WriteString(w, seq)
	}
}

// EncodeKittyImage scales img to fit cols x rows cells and returns the
// escape sequences that draw it at the cursor.
func EncodeKittyImage(img image.Image, cols int, rows int) (string, error) {
	if img == nil || cols <= 0 || rows <= 0 {
		return "", ErrEmptyImage
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", ErrEmptyImage
	}

	width, height := fitSize(bounds.Dx(), bounds.Dy(), cols*cellWidthPx, rows*cellHeightPx)
	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return "", fmt.Errorf("failed to encode artwork: %w", err)
	}

	return kittyChunks(base64.StdEncoding.EncodeToString(buf.Bytes()), cols, rows), nil
}

// fitSize keeps the aspect ratio of srcW x srcH inside maxW x maxH.
func fitSize(srcW int, srcH int, maxW int, maxH int) (int, int) {
	aspect := float64(srcW) / float64(srcH)
	width, height := maxW, maxH

	if aspect > float64(maxW)/float64(maxH) {
		height = int(float64(maxW) / aspect)
	} else {
		width = int(float64(maxH) * aspect)
	}

	return max(width, minImagePx), max(height, minImagePx)
}

// kittyChunks splits the payload into transmissions of at most
// kittyChunkSize bytes. m=1 marks that more chunks follow.
func kittyChunks(encoded string, cols int, rows int) string {
	var result strings.Builder

	for i := 0; i < len(encoded); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(encoded))

		more := 1
		if end >= len(encoded) {
			more = 0
		}

		if i == 0 {
			fmt.Fprintf(&result, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, encoded[i:end])
		} else {
			fmt.Fprintf(&result, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
		}
	}

	return result.String()
}
