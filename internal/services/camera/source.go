package camera

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

var (
	// ErrNoCameraAvailable is returned when none of the candidate indices opens
	ErrNoCameraAvailable = errors.New("no camera available")
	// ErrEndOfStream is returned once the device stops delivering frames
	ErrEndOfStream = errors.New("end of camera stream")
)

// Device is the part of a video capture the source needs
type Device interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// OpenFunc opens the capture device at index
type OpenFunc func(index int) (Device, error)

// Options configures the opened device and the frames it yields
type Options struct {
	Width  int // 0 keeps the device default
	Height int
	Mirror bool
}

// Source yields frames from the first responsive capture device.
type Source struct {
	device Device
	index  int
	mirror bool
	closed bool
}

type captureDevice struct {
	vc *gocv.VideoCapture
}

func (d *captureDevice) Read(m *gocv.Mat) bool { return d.vc.Read(m) }
func (d *captureDevice) IsOpened() bool        { return d.vc.IsOpened() }

func (d *captureDevice) Close() error {
	releaseCapture(d.vc)
	return nil
}

var (
	openCaptureDevice = gocv.VideoCaptureDevice
	releaseCapture    = func(vc *gocv.VideoCapture) { vc.Close() }
)

// DeviceOpener opens local video capture devices through OpenCV.
func DeviceOpener(opts Options) OpenFunc {
	return func(index int) (Device, error) {
		vc, err := openCaptureDevice(index)
		if err != nil {
			// gocv hands back an allocated capture even when opening fails
			if vc != nil {
				releaseCapture(vc)
			}
			return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
		}

		vc.Set(gocv.VideoCaptureBufferSize, 1)
		if opts.Width > 0 && opts.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
			vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
		}
		return &captureDevice{vc: vc}, nil
	}
}

// Open tries indices in order and returns a source for the first device that reports
// itself open. Devices that fail to open are released before the next attempt.
func Open(indices []int, opts Options, open OpenFunc) (*Source, error) {
	for _, index := range indices {
		device, err := open(index)
		if err != nil {
			log.Debug().Err(err).Int("index", index).Msg("Camera index unavailable")
			continue
		}
		if device == nil {
			continue
		}
		if !device.IsOpened() {
			device.Close()
			log.Debug().Int("index", index).Msg("Camera index did not open")
			continue
		}

		log.Info().
			Int("index", index).
			Bool("mirror", opts.Mirror).
			Msg("Camera opened successfully")

		return &Source{device: device, index: index, mirror: opts.Mirror}, nil
	}

	return nil, fmt.Errorf("%w (tried indices %v)", ErrNoCameraAvailable, indices)
}

// Read fills dst with the next frame, mirrored horizontally when configured.
func (s *Source) Read(dst *gocv.Mat) error {
	if s.closed {
		return ErrEndOfStream
	}
	if ok := s.device.Read(dst); !ok || dst.Empty() {
		return ErrEndOfStream
	}
	if s.mirror {
		gocv.Flip(*dst, dst, 1)
	}
	return nil
}

// Index returns the device index that was opened
func (s *Source) Index() int {
	return s.index
}

// Close releases the device. It is safe to call more than once.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	log.Info().Int("index", s.index).Msg("Releasing camera")
	return s.device.Close()
}

// EncodeJPEG compresses a BGR frame for the classifier or the preview stream.
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	if frame.Empty() {
		return nil, errors.New("cannot encode an empty frame")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	return jpegCopy, nil
}
