package scan

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab-tracker-backend/internal/identity"
	"lab-tracker-backend/internal/qrcode"
)

func jpegFrame(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func TestMJPEGSource(t *testing.T) {
	badge := identity.Payload{ID: 7, Name: "Ada", Email: "ada@example.org"}.Encode()
	img, err := qrcode.Image(badge, 400)
	require.NoError(t, err)
	body := jpegFrame(t, img)

	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)

		for i := 0; i < 2; i++ {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			_, _ = part.Write(body)
		}
		w.(http.Flusher).Flush()

		// Hold the stream open like a live camera.
		<-r.Context().Done()
	}))
	defer srv.Close()

	stream, err := NewMJPEGSource(srv.URL).Start(context.Background(), Resolution{Width: 1280, Height: 720})
	require.NoError(t, err)
	assert.Equal(t, "height=720&width=1280", query)

	var frame image.Image
	require.Eventually(t, func() bool {
		f, err := stream.Frame()
		require.NoError(t, err)
		frame = f
		return f != nil
	}, 2*time.Second, 10*time.Millisecond)

	got, ok := NewQRDecoder().Decode(frame)
	require.True(t, ok)
	assert.Equal(t, badge, got)

	_ = stream.Stop()
	assert.NoError(t, stream.Stop(), "second Stop is a no-op")
}

func TestMJPEGSource_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewMJPEGSource(srv.URL).Start(context.Background(), Resolution{})
	assert.ErrorIs(t, err, ErrCameraUnavailable)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer srv2.Close()

	_, err = NewMJPEGSource(srv2.URL).Start(context.Background(), Resolution{})
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}

func TestMultipartBoundary(t *testing.T) {
	b, err := multipartBoundary("multipart/x-mixed-replace; boundary=--frame")
	require.NoError(t, err)
	assert.Equal(t, "frame", b)

	_, err = multipartBoundary("multipart/x-mixed-replace")
	assert.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	for name, p := range map[string]identity.Payload{
		"002.png": {ID: 42, Name: "Bo", Email: "bo@example.org"},
		"001.png": {ID: 7, Name: "Ada", Email: "ada@example.org"},
	} {
		png, err := qrcode.PNG(p, 256)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), png, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000.jpg"), []byte("not a jpeg"), 0o644))

	stream, err := DirSource{Dir: dir}.Start(context.Background(), Resolution{})
	require.NoError(t, err)
	defer stream.Stop()

	d := NewQRDecoder()
	var ids []string
	for {
		img, err := stream.Frame()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		text, ok := d.Decode(img)
		require.True(t, ok)
		p, err := identity.Validate(text)
		require.NoError(t, err)
		ids = append(ids, p.Name)
	}
	assert.Equal(t, []string{"Ada", "Bo"}, ids)
}

func TestDirSource_Missing(t *testing.T) {
	_, err := DirSource{Dir: filepath.Join(t.TempDir(), "nope")}.Start(context.Background(), Resolution{})
	assert.ErrorIs(t, err, ErrCameraUnavailable)
}
