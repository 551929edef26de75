package service

import (
	"bytes"
	"strconv"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

// Badge is what gets printed on one worker card. The QR code holds the
// employee code the kiosk PIN form asks for.
type Badge struct {
	Code       string
	Name       string
	Department string
}

const (
	badgeCols   = 3
	badgeRows   = 4
	badgeWidth  = 60.0
	badgeHeight = 68.0
	badgeQR     = 40.0
	pageMargin  = 10.0
)

func QRCode(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, errors.New("empty employee code")
	}

	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding qr code")
	}

	return png, nil
}

// BadgeSheet lays out badges on A4 pages, twelve per page.
func BadgeSheet(badges []Badge) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(badges) == 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "", 12)
		pdf.Text(pageMargin, pageMargin+10, "No workers")
	}

	perPage := badgeCols * badgeRows

	for i, b := range badges {
		if i%perPage == 0 {
			pdf.AddPage()
		}

		slot := i % perPage
		x := pageMargin + float64(slot%badgeCols)*(badgeWidth+5)
		y := pageMargin + float64(slot/badgeCols)*(badgeHeight+2)

		png, err := QRCode(b.Code, 256)
		if err != nil {
			return nil, err
		}

		name := "qr-" + strconv.Itoa(i)
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

		pdf.SetDrawColor(180, 180, 180)
		pdf.Rect(x, y, badgeWidth, badgeHeight, "D")
		pdf.ImageOptions(name, x+(badgeWidth-badgeQR)/2, y+3, badgeQR, badgeQR, false, opts, 0, "")

		pdf.SetXY(x, y+badgeQR+5)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(badgeWidth, 6, tr(b.Name), "", 2, "C", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(badgeWidth, 5, b.Code, "", 2, "C", false, 0, "")
		if b.Department != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(badgeWidth, 5, tr(b.Department), "", 2, "C", false, 0, "")
		}

		if err := pdf.Error(); err != nil {
			return nil, errors.Wrap(err, "drawing badge")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "writing badge sheet")
	}

	return buf.Bytes(), nil
}
