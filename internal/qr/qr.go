// Package qr renders shareable room URLs as QR codes, grounded on the
// temp-file PNG round-trip treacherest's lobby handler used for its
// "scan to join" card.
package qr

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// PNGDataURL renders url as a QR code and returns it as a
// "data:image/png;base64,..." string suitable for an <img src>.
func PNGDataURL(url string) (string, error) {
	data, err := renderPNG(url)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// SVG renders url as a QR code and returns the raw SVG markup.
func SVG(url string) (string, error) {
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return "", fmt.Errorf("create qr code: %w", err)
	}

	tmpFile := fmt.Sprintf("%s/arena_qr_%d.svg", os.TempDir(), time.Now().UnixNano())
	defer os.Remove(tmpFile)

	w, err := standard.New(tmpFile, standard.WithQRWidth(8))
	if err != nil {
		return "", fmt.Errorf("create svg writer: %w", err)
	}
	if err := qrc.Save(w); err != nil {
		return "", fmt.Errorf("save qr code: %w", err)
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return "", fmt.Errorf("read qr svg: %w", err)
	}
	return string(data), nil
}

func renderPNG(url string) ([]byte, error) {
	qrc, err := qrcode.NewWith(url,
		qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium),
		qrcode.WithEncodingMode(qrcode.EncModeByte),
	)
	if err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}

	tmpFile := fmt.Sprintf("%s/arena_qr_%d.png", os.TempDir(), time.Now().UnixNano())
	defer os.Remove(tmpFile)

	w, err := standard.New(tmpFile,
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(8),
	)
	if err != nil {
		return nil, fmt.Errorf("create png writer: %w", err)
	}
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("save qr code: %w", err)
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read qr png: %w", err)
	}
	return data, nil
}
