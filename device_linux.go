// Copyright 2023 The go-tss Authors.
// Licensed under the MIT license. See LICENSE file for details.

package tss

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// DeviceTransport represents a connection to a Linux TPM character device.
type DeviceTransport struct {
	f   *os.File
	buf *bytes.Reader
}

func (d *DeviceTransport) readMoreData() error {
	fds := []unix.PollFd{{Fd: int32(d.f.Fd()), Events: unix.POLLIN}}
	_, err := unix.Ppoll(fds, nil, nil)
	if err != nil {
		return xerrors.Errorf("polling device failed: %w", err)
	}

	if fds[0].Events != fds[0].Revents {
		return fmt.Errorf("invalid poll events returned: %d", fds[0].Revents)
	}

	buf := make([]byte, MaxResponseSize)
	n, err := d.f.Read(buf)
	if err != nil {
		return xerrors.Errorf("reading from device failed: %w", err)
	}

	d.buf = bytes.NewReader(buf[:n])
	return nil
}

func (d *DeviceTransport) Read(data []byte) (int, error) {
	if d.buf == nil {
		if err := d.readMoreData(); err != nil {
			return 0, err
		}
	}

	n, err := d.buf.Read(data)
	if err == io.EOF {
		d.buf = nil
	}
	return n, err
}

func (d *DeviceTransport) Write(data []byte) (int, error) {
	return d.f.Write(data)
}

func (d *DeviceTransport) Close() error {
	return d.f.Close()
}

// OpenTPMDevice attempts to open a connection to the Linux TPM character
// device at the specified path. If successful, it returns a new
// DeviceTransport instance which can be passed to NewTSSContext. Failure to
// open the TPM character device will result in a wrapped *os.PathError being
// returned.
func OpenTPMDevice(path string) (*DeviceTransport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("cannot open linux TPM device: %w", err)
	}

	s, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("cannot stat linux TPM device: %w", err)
	}

	if s.Mode()&os.ModeDevice == 0 {
		f.Close()
		return nil, fmt.Errorf("unsupported file mode %v", s.Mode())
	}

	return &DeviceTransport{f: f}, nil
}
