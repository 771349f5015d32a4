package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// inputSource wraps the opened reader for one input path along with the
// facts mode selection needs: whether it is a seekable regular file and,
// if so, its size.
type inputSource struct {
	r        io.Reader
	seekable bool
	size     int64
	closers  []func() error
}

func (s *inputSource) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openInput opens path: "-" is stdin (always serial, never seekable);
// ".gz" inputs are decompressed via klauspost/compress/gzip and are always
// processed serially too, since the parallel dispatcher needs random access
// into the underlying bytes that gzip can't provide.
func (ix *IndexerContext) openInput(path string) (*inputSource, error) {
	if path == "-" {
		return &inputSource{r: os.Stdin, seekable: false}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	src := &inputSource{closers: []func() error{f.Close}}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		src.r = gz
		src.closers = append(src.closers, gz.Close)
		src.seekable = false
		return src, nil
	}

	info, statErr := f.Stat()
	if statErr == nil && info.Mode().IsRegular() {
		src.seekable = true
		src.size = info.Size()
	}
	src.r = f
	return src, nil
}

// outputDestination wraps the opened writer for one input's output: stdout
// by default, or "<input>.lpi" when Config.Write is set.
type outputDestination struct {
	w      io.Writer
	closer func() error
}

func (o *outputDestination) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}

func (ix *IndexerContext) openOutput(path string) (*outputDestination, error) {
	if !ix.cfg.Write {
		return &outputDestination{w: os.Stdout}, nil
	}
	outPath := path + ".lpi"
	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", outPath, err)
	}
	return &outputDestination{w: f, closer: f.Close}, nil
}
