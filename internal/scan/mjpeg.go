package scan

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"strconv"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

// MJPEGSource reads a multipart/x-mixed-replace JPEG stream over HTTP, the
// format served by most IP cameras and by webcam bridges such as mjpg-streamer.
type MJPEGSource struct {
	URL    string
	client *resty.Client
}

// NewMJPEGSource creates a source for the camera at url. The HTTP client has
// no overall timeout since the response body never ends.
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		URL:    url,
		client: resty.New().SetHeader("Accept", "multipart/x-mixed-replace"),
	}
}

// Start connects to the camera and begins reading frames in the background.
func (s *MJPEGSource) Start(ctx context.Context, res Resolution) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	req := s.client.R().SetContext(ctx).SetDoNotParseResponse(true)
	if res.Width > 0 && res.Height > 0 {
		req.SetQueryParams(map[string]string{
			"width":  strconv.Itoa(res.Width),
			"height": strconv.Itoa(res.Height),
		})
	}

	resp, err := req.Get(s.URL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != 200 {
		body.Close()
		cancel()
		return nil, fmt.Errorf("%w: camera returned %s", ErrCameraUnavailable, resp.Status())
	}

	boundary, err := multipartBoundary(resp.Header().Get("Content-Type"))
	if err != nil {
		body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	st := &mjpegStream{
		body:   body,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go st.read(multipart.NewReader(body, boundary))
	return st, nil
}

func multipartBoundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("bad content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("not a multipart stream: %s", mediaType)
	}
	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return "", fmt.Errorf("multipart stream without boundary")
	}
	return boundary, nil
}

type mjpegStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	latest image.Image
	fresh  bool
	err    error

	stopOnce sync.Once
}

func (s *mjpegStream) read(mr *multipart.Reader) {
	defer close(s.done)
	for {
		part, err := mr.NextPart()
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
		img, err := jpeg.Decode(part)
		if err == nil {
			s.mu.Lock()
			s.latest, s.fresh = img, true
			s.mu.Unlock()
		}
		// A torn frame is skipped; the next one will do.
		part.Close()
	}
}

// Frame returns the most recent frame once. Repeated calls before a new frame
// arrives return (nil, nil).
func (s *mjpegStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh {
		s.fresh = false
		return s.latest, nil
	}
	if s.err != nil {
		if s.err == io.EOF {
			return nil, fmt.Errorf("%w: stream ended", ErrCameraUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, s.err)
	}
	return nil, nil
}

func (s *mjpegStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
		<-s.done
	})
	return err
}
