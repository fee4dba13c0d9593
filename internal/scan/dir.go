package scan

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// DirSource replays the image files of a directory in name order, one per
// Frame call. It stands in for a camera in demos and tests.
type DirSource struct {
	Dir string
}

// Start lists the directory. An unreadable directory counts as a missing camera.
func (s DirSource) Start(_ context.Context, _ Resolution) (Stream, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(s.Dir, e.Name()))
	}
	sort.Strings(files)
	return &dirStream{files: files}, nil
}

type dirStream struct {
	mu      sync.Mutex
	files   []string
	next    int
	stopped bool
}

func (s *dirStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.stopped && s.next < len(s.files) {
		path := s.files[s.next]
		s.next++
		img, err := decodeFile(path)
		if err != nil {
			continue
		}
		return img, nil
	}
	return nil, io.EOF
}

func (s *dirStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
