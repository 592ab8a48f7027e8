// Package fitslz4 stores sonar frames as 8-bit FITS images inside LZ4 frames.
package fitslz4

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sealhits/internal/ports"
)

const (
	blockSize = 2880
	cardSize  = 80
)

// card renders one fixed-format header card.
func card(key, value string) string {
	c := fmt.Sprintf("%-8s= %20s", key, value)
	return c + strings.Repeat(" ", cardSize-len(c))
}

func headerCards(img *ports.FrameImage) []string {
	t := img.Time.UTC()
	ints := []struct {
		key string
		val int
	}{
		{"BITPIX", 8},
		{"NAXIS", 2},
		{"NAXIS1", img.Width},
		{"NAXIS2", img.Height},
		{"SONARID", img.SensorID},
		{"WIDTH", img.Width},
		{"HEIGHT", img.Height},
		{"YEAR", t.Year()},
		{"MONTH", int(t.Month())},
		{"DAY", t.Day()},
		{"HOUR", t.Hour()},
		{"MINUTE", t.Minute()},
		{"SECOND", t.Second()},
		{"MILLI", t.Nanosecond() / 1e6},
	}

	cards := []string{card("SIMPLE", "T")}
	for _, kv := range ints {
		cards = append(cards, card(kv.key, strconv.Itoa(kv.val)))
	}
	cards = append(cards, "END"+strings.Repeat(" ", cardSize-3))
	return cards
}

// encodeFITS writes a single-HDU FITS file for img.
func encodeFITS(w io.Writer, img *ports.FrameImage) error {
	if len(img.Pixels) != img.Width*img.Height {
		return fmt.Errorf("image has %d pixels, want %dx%d", len(img.Pixels), img.Width, img.Height)
	}

	var buf bytes.Buffer
	for _, c := range headerCards(img) {
		buf.WriteString(c)
	}
	pad(&buf, ' ')
	buf.Write(img.Pixels)
	pad(&buf, 0)

	_, err := w.Write(buf.Bytes())
	return err
}

func pad(buf *bytes.Buffer, b byte) {
	if rem := buf.Len() % blockSize; rem != 0 {
		buf.Write(bytes.Repeat([]byte{b}, blockSize-rem))
	}
}

// Header is the decoded header of a stored frame.
type Header map[string]string

// Int returns an integer card value.
func (h Header) Int(key string) (int, error) {
	v, ok := h[key]
	if !ok {
		return 0, fmt.Errorf("missing header card %s", key)
	}
	return strconv.Atoi(v)
}

// decodeFITS reads a file written by encodeFITS.
func decodeFITS(data []byte) (Header, []byte, error) {
	h := Header{}
	offset := 0
	for {
		if offset+cardSize > len(data) {
			return nil, nil, fmt.Errorf("header not terminated")
		}
		c := string(data[offset : offset+cardSize])
		offset += cardSize
		key := strings.TrimSpace(c[:8])
		if key == "END" {
			break
		}
		if len(c) > 10 && c[8] == '=' {
			h[key] = strings.TrimSpace(c[10:])
		}
	}
	if rem := offset % blockSize; rem != 0 {
		offset += blockSize - rem
	}

	w, err := h.Int("NAXIS1")
	if err != nil {
		return nil, nil, err
	}
	hgt, err := h.Int("NAXIS2")
	if err != nil {
		return nil, nil, err
	}
	if offset+w*hgt > len(data) {
		return nil, nil, fmt.Errorf("data unit shorter than %dx%d", w, hgt)
	}
	return h, data[offset : offset+w*hgt], nil
}
