// Package invite turns deep links into shareable URLs and QR codes.
package invite

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
	"trivia-night/internal/app"
)

// DefaultQRSize is the PNG edge length in pixels.
const DefaultQRSize = 256

// URL appends the deep link to base, replacing any query base already carries.
func URL(base string, link app.DeepLink) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse invite base %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invite base %q must be absolute", base)
	}
	u.RawQuery = link.Values().Encode()
	u.Fragment = ""
	return u.String(), nil
}

// QRCode renders target as a PNG with medium error recovery.
func QRCode(target string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
