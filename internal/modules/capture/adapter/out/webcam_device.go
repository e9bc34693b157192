//go:build gocv

package out

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"drawclass/internal/modules/capture/domain"
)

// WebcamDevice grabs a single JPEG frame through OpenCV.
type WebcamDevice struct{}

func NewWebcamDevice() *WebcamDevice {
	return &WebcamDevice{}
}

func WebcamAvailable() bool { return true }

func (d *WebcamDevice) Grab(ctx context.Context, request domain.Request) (domain.Image, error) {
	device := request.Device
	if device == "" {
		device = "0"
	}
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return domain.Image{}, fmt.Errorf("open camera %s: %w", device, err)
	}
	defer webcam.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if err := ctx.Err(); err != nil {
		return domain.Image{}, err
	}
	if ok := webcam.Read(&frame); !ok || frame.Empty() {
		return domain.Image{}, fmt.Errorf("camera %s returned no frame", device)
	}
	data, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return domain.Image{}, fmt.Errorf("encode frame: %w", err)
	}
	return domain.Image{Data: data, MediaType: "image/jpeg"}, nil
}
