package jpegtran

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// readExif extracts the orientation and thumbnail presence from an APP1
// payload starting with the Exif identifier. Unreadable EXIF is ignored.
func readExif(app1 []byte) (orientation int, hasThumbnail bool) {
	orientation = 1
	if len(app1) <= len(exifIdentifier) {
		return orientation, false
	}
	x, err := exif.Decode(bytes.NewReader(app1[len(exifIdentifier):]))
	if err != nil {
		return orientation, false
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			orientation = v
		}
	}
	if thumb, err := x.JpegThumbnail(); err == nil && len(thumb) > 0 {
		hasThumbnail = true
	}
	return orientation, hasThumbnail
}
