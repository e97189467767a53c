package http

import (
	"errors"
	"io"
	"os"

	"github.com/indigo-web/channel/config"
)

var _ io.ReadWriteSeeker = new(Content)

// Content accumulates the request body. Bodies are kept in memory until they grow up to
// config.Body.MemoryThreshold, then they're spilled into a temporary file, removed on
// Close. Bodies declaring the length of at least the threshold go straight into the file.
// Once the body was received completely, the content is rewound, so the handler may read
// it from the beginning.
type Content struct {
	buff    []byte
	offset  int64
	file    *os.File
	closed  bool
	limit   int64
	tempDir string
}

// NewContent creates a sink for the body of the given length. Negative length means the
// length isn't known.
func NewContent(length int64, cfg config.Body) (*Content, error) {
	if length >= cfg.MemoryThreshold || (length < 0 && cfg.MemoryThreshold <= 0) {
		file, err := createTemp(cfg.TempDir)
		if err != nil {
			return nil, err
		}

		return &Content{file: file}, nil
	}

	c := &Content{
		limit:   cfg.MemoryThreshold,
		tempDir: cfg.TempDir,
	}

	if length > 0 {
		c.buff = make([]byte, 0, length)
	}

	return c, nil
}

func createTemp(dir string) (*os.File, error) {
	return os.CreateTemp(dir, "channel-content-*")
}

// NewContentFromBytes returns an in-memory content holding the data.
func NewContentFromBytes(data []byte) *Content {
	return &Content{buff: data}
}

func (c *Content) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrContentClosed
	}

	if c.file == nil && c.limit > 0 && int64(len(c.buff)+len(p)) > c.limit {
		if err := c.spill(); err != nil {
			return 0, err
		}
	}

	if c.file != nil {
		return c.file.Write(p)
	}

	if c.offset != int64(len(c.buff)) {
		n := copy(c.buff[c.offset:], p)
		c.buff = append(c.buff, p[n:]...)
	} else {
		c.buff = append(c.buff, p...)
	}

	c.offset += int64(len(p))
	return len(p), nil
}

// spill moves the in-memory content into a temporary file, keeping the current offset.
func (c *Content) spill() error {
	file, err := createTemp(c.tempDir)
	if err != nil {
		return err
	}

	if _, err = file.Write(c.buff); err == nil {
		_, err = file.Seek(c.offset, io.SeekStart)
	}

	if err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return err
	}

	c.file, c.buff = file, nil
	return nil
}

func (c *Content) Read(p []byte) (n int, err error) {
	if c.closed {
		return 0, ErrContentClosed
	}

	if c.file != nil {
		return c.file.Read(p)
	}

	if c.offset >= int64(len(c.buff)) {
		return 0, io.EOF
	}

	n = copy(p, c.buff[c.offset:])
	c.offset += int64(n)

	return n, nil
}

var errNegativeOffset = errors.New("negative offset")

func (c *Content) Seek(offset int64, whence int) (int64, error) {
	if c.closed {
		return 0, ErrContentClosed
	}

	if c.file != nil {
		return c.file.Seek(offset, whence)
	}

	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += c.offset
	case io.SeekEnd:
		offset += int64(len(c.buff))
	default:
		return 0, errors.New("invalid whence")
	}

	if offset < 0 {
		return 0, errNegativeOffset
	}

	c.offset = min(offset, int64(len(c.buff)))
	return c.offset, nil
}

// Rewind seeks to the beginning of the content.
func (c *Content) Rewind() error {
	_, err := c.Seek(0, io.SeekStart)
	return err
}

// Bytes returns the whole content, regardless of the current offset.
func (c *Content) Bytes() ([]byte, error) {
	if c.closed {
		return nil, ErrContentClosed
	}

	if c.file == nil {
		return c.buff, nil
	}

	offset, err := c.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	if _, err = c.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(c.file)
	if err != nil {
		return nil, err
	}

	_, err = c.file.Seek(offset, io.SeekStart)
	return data, err
}

// Len returns the number of bytes stored.
func (c *Content) Len() int64 {
	if c.file == nil {
		return int64(len(c.buff))
	}

	info, err := c.file.Stat()
	if err != nil {
		return 0
	}

	return info.Size()
}

// InFile reports whether the content is backed by a temporary file.
func (c *Content) InFile() bool {
	return c.file != nil
}

func (c *Content) Closed() bool {
	return c.closed
}

// Close releases the content. It's safe to be called multiple times.
func (c *Content) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true
	c.buff = nil

	if c.file == nil {
		return nil
	}

	err := c.file.Close()
	if rmerr := os.Remove(c.file.Name()); err == nil {
		err = rmerr
	}

	return err
}
