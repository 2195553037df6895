// Package app is the file transfer layer on top of a datachannel.DataChannel.
//
// A transfer is a text header followed by binary payloads. The channel splits
// each binary payload into chunks and hands chunks to the receiver as they
// arrive, so the receiver reassembles by counting bytes against the header.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/dcpipe/internal/protocol"
	"github.com/1ureka/dcpipe/internal/util"
)

// SegmentSize is how much of a file is read and sent as one binary payload.
const SegmentSize = 4 * 1024 * 1024

var (
	ErrInvalidHeader = errors.New("invalid file header")
	ErrSizeMismatch  = errors.New("received more bytes than announced")
)

// Conn is the part of *datachannel.DataChannel a transfer needs.
type Conn interface {
	SendText(ctx context.Context, s string) error
	SendBinary(ctx context.Context, b []byte) error
	Receive(ctx context.Context) (protocol.Payload, error)
}

// Header announces a file. Exactly Size bytes of binary payloads follow it.
type Header struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// parseHeader returns ok=false for text that is not a header at all, and an
// error for text that is a header but cannot be accepted.
func parseHeader(text string) (h Header, ok bool, err error) {
	var raw struct {
		Name *string `json:"name"`
		Size *int64  `json:"size"`
	}
	if json.Unmarshal([]byte(text), &raw) != nil || raw.Name == nil || raw.Size == nil {
		return Header{}, false, nil
	}

	h = Header{Name: *raw.Name, Size: *raw.Size}
	if h.Size < 0 {
		return h, true, fmt.Errorf("%w: negative size %d", ErrInvalidHeader, h.Size)
	}

	// Only a bare file name is accepted; anything path-like could escape dir.
	if h.Name == "" || h.Name == "." || h.Name == ".." ||
		strings.ContainsAny(h.Name, `/\`) || filepath.Base(h.Name) != h.Name {
		return h, true, fmt.Errorf("%w: bad name %q", ErrInvalidHeader, h.Name)
	}
	return h, true, nil
}

// SendFile sends the file at path: a header, then its contents in
// SegmentSize binary payloads.
func SendFile(ctx context.Context, c Conn, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	header, err := json.Marshal(Header{Name: info.Name(), Size: info.Size()})
	if err != nil {
		return err
	}
	if err := c.SendText(ctx, string(header)); err != nil {
		return fmt.Errorf("failed to send header: %w", err)
	}

	util.LogInfo("sending %s (%s)", info.Name(), util.FormatBytes(info.Size()))
	bar := startProgress("Sending "+info.Name(), info.Size())
	defer bar.stop()

	r := io.LimitReader(f, info.Size())
	buf := make([]byte, SegmentSize)
	var sent int64
	for sent < info.Size() {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			// SendBinary returns only after the transport has taken every
			// chunk, so buf can be reused.
			if err := c.SendBinary(ctx, buf[:n]); err != nil {
				return fmt.Errorf("failed to send %s at offset %d: %w", info.Name(), sent, err)
			}
			sent += int64(n)
			bar.add(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if sent != info.Size() {
		return fmt.Errorf("%s changed while sending: sent %d of %d bytes", info.Name(), sent, info.Size())
	}
	util.LogSuccess("sent %s", info.Name())
	return nil
}

// ReceiveFile waits for the next header, writes the file that follows into
// dir and returns its path. Text that is not a header is logged as chat and
// binary data outside a transfer is dropped. A partially written file is
// removed on error.
func ReceiveFile(ctx context.Context, c Conn, dir string) (string, error) {
	var h Header
	for {
		p, err := c.Receive(ctx)
		if err != nil {
			return "", err
		}

		if p.IsBinary() {
			util.LogWarning("dropping %d bytes received outside a transfer", len(p.Bytes()))
			continue
		}

		var ok bool
		h, ok, err = parseHeader(p.String())
		if err != nil {
			return "", err
		}
		if ok {
			break
		}
		util.LogInfo("peer: %s", p.String())
	}

	path := filepath.Join(dir, h.Name)
	if err := receiveInto(ctx, c, path, h); err != nil {
		os.Remove(path)
		return "", err
	}
	util.LogSuccess("received %s (%s)", path, util.FormatBytes(h.Size))
	return path, nil
}

func receiveInto(ctx context.Context, c Conn, path string, h Header) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	bar := startProgress("Receiving "+h.Name, h.Size)
	defer bar.stop()

	var written int64
	for written < h.Size {
		p, err := c.Receive(ctx)
		if err != nil {
			return fmt.Errorf("transfer of %s interrupted at %d/%d bytes: %w", h.Name, written, h.Size, err)
		}

		if p.IsText() {
			util.LogInfo("peer: %s", p.String())
			continue
		}

		data := p.Bytes()
		if written+int64(len(data)) > h.Size {
			return fmt.Errorf("%w: %s announced %d bytes", ErrSizeMismatch, h.Name, h.Size)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		written += int64(len(data))
		bar.add(len(data))
	}

	return f.Close()
}

// Serve receives files into dir until the channel closes or ctx is done.
// A rejected header ends only that transfer.
func Serve(ctx context.Context, c Conn, dir string) error {
	for {
		_, err := ReceiveFile(ctx, c, dir)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidHeader):
			util.LogWarning("%v", err)
		default:
			return err
		}
	}
}

// progress is a nil-safe wrapper over a pterm progress bar.
type progress struct {
	bar *pterm.ProgressbarPrinter
}

func startProgress(title string, total int64) *progress {
	if total <= 0 || !pterm.Output {
		return &progress{}
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(int(total)).
		WithTitle(title).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return &progress{}
	}
	return &progress{bar: bar}
}

func (p *progress) add(n int) {
	if p.bar != nil {
		p.bar.Add(n)
	}
}

func (p *progress) stop() {
	if p.bar != nil {
		p.bar.Stop()
	}
}
