package arena

import (
	"context"

	"nostrarena/internal/qr"
)

// GetRoomQRSVG returns the current room's shareable URL rendered as SVG
// markup. Returns ("", nil) if there is no current room.
func (a *Arena) GetRoomQRSVG(ctx context.Context) (string, error) {
	url, err := a.GetRoomURL(ctx)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", nil
	}
	svg, err := qr.SVG(url)
	if err != nil {
		return "", wrapErr(ErrKindConfig, "render room qr svg", err)
	}
	return svg, nil
}

// GetRoomQRDataURL returns the current room's shareable URL rendered as
// a "data:image/png;base64,..." QR code. Returns ("", nil) if there is
// no current room.
func (a *Arena) GetRoomQRDataURL(ctx context.Context) (string, error) {
	url, err := a.GetRoomURL(ctx)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", nil
	}
	dataURL, err := qr.PNGDataURL(url)
	if err != nil {
		return "", wrapErr(ErrKindConfig, "render room qr png", err)
	}
	return dataURL, nil
}
