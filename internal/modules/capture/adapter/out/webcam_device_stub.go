//go:build !gocv

package out

import (
	"context"
	"fmt"

	"drawclass/internal/modules/capture/domain"
)

// WebcamDevice needs OpenCV; build with -tags gocv to enable it.
type WebcamDevice struct{}

func NewWebcamDevice() *WebcamDevice {
	return &WebcamDevice{}
}

func WebcamAvailable() bool { return false }

func (d *WebcamDevice) Grab(context.Context, domain.Request) (domain.Image, error) {
	return domain.Image{}, fmt.Errorf("webcam capture requires a build with -tags gocv")
}
