// Package pipeline moves an admitted, filtered file from the share host
// to the requesting chat: capped streaming download to a per-request
// temp path, upload as a playable video, best-effort mirror to the dump
// chat, and unconditional cleanup of the temp file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/teragrab/teragrab/resolver"
	"github.com/teragrab/teragrab/utils"
)

// MaxUploadBytes is the hard transfer cap (the platform's upload limit).
const MaxUploadBytes int64 = 2 << 30

var (
	// ErrSizeLimit means the file exceeds MaxUploadBytes, detected either
	// from the declared size or mid-stream.
	ErrSizeLimit = errors.New("file exceeds the 2 GiB upload limit")
	// ErrDownload covers network and upstream failures while streaming.
	// Transient: the user may retry, subject to the rate limit.
	ErrDownload = errors.New("download failed")
	// ErrUpload means the video could not be delivered to the chat.
	ErrUpload = errors.New("upload failed")
)

// Uploader sends local files into chats. The Telegram transport
// implements it; tests fake it.
type Uploader interface {
	// SendVideo uploads path to chatID as a streamable video and returns
	// the resulting message ID.
	SendVideo(ctx context.Context, chatID int64, path, filename, caption string) (int, error)
	// Forward copies an already-delivered message into another chat.
	Forward(ctx context.Context, toChatID, fromChatID int64, messageID int) error
}

// Pipeline performs deliveries. Safe for concurrent use across users;
// every request gets a collision-free temp path.
type Pipeline struct {
	httpc       *http.Client
	downloadDir string
	referer     string
	uploader    Uploader
	dumpChatID  int64
	maxBytes    int64
}

// New builds a Pipeline. dumpChatID 0 disables mirroring. The download
// client carries no overall timeout; large transfers are bounded by ctx.
func New(downloadDir, referer string, uploader Uploader, dumpChatID int64) *Pipeline {
	return &Pipeline{
		httpc:       &http.Client{},
		downloadDir: downloadDir,
		referer:     referer,
		uploader:    uploader,
		dumpChatID:  dumpChatID,
		maxBytes:    MaxUploadBytes,
	}
}

// Deliver downloads link into a temp file, uploads it to chatID and
// mirrors it to the dump chat. The temp file is removed on every exit
// path; a failed removal is logged, never propagated.
func (p *Pipeline) Deliver(ctx context.Context, chatID int64, link *resolver.ResolvedLink) error {
	if link.SizeBytes > p.maxBytes {
		return fmt.Errorf("declared size %d: %w", link.SizeBytes, ErrSizeLimit)
	}

	path := filepath.Join(p.downloadDir, uuid.NewString()+"_"+safeName(link.Filename))
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			utils.Sugar.Errorf("could not remove temp file %s: %v", path, err)
		}
	}()

	written, err := p.download(ctx, link.DirectURL, path)
	if err != nil {
		return err
	}
	utils.Sugar.Infof("downloaded %s (%s) for chat %d", link.Filename, utils.FormatBytes(written), chatID)

	caption := fmt.Sprintf("✅ %s (%s)", utils.Sanitize(link.Filename), utils.FormatBytes(written))
	messageID, err := p.uploader.SendVideo(ctx, chatID, path, link.Filename, caption)
	if err != nil {
		return fmt.Errorf("sending video to chat %d: %w", chatID, ErrUpload)
	}

	// Mirror to the dump chat for audit. Best-effort only: a failure here
	// must never fail the user-facing delivery.
	if p.dumpChatID != 0 {
		if err := p.uploader.Forward(ctx, p.dumpChatID, chatID, messageID); err != nil {
			utils.Sugar.Errorf("mirror to dump chat %d failed: %v", p.dumpChatID, err)
		}
	}
	return nil
}

// download streams url into path, aborting as soon as the byte count
// passes MaxUploadBytes.
func (p *Pipeline) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Referer", p.referer)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("requesting direct url: %w", ErrDownload)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("direct url returned status %d: %w", resp.StatusCode, ErrDownload)
	}
	if resp.ContentLength > p.maxBytes {
		return 0, fmt.Errorf("content-length %d: %w", resp.ContentLength, ErrSizeLimit)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}

	// Read one byte past the cap so an exact-cap file still succeeds.
	written, err := io.Copy(f, io.LimitReader(resp.Body, p.maxBytes+1))
	closeErr := f.Close()
	if err != nil {
		return 0, fmt.Errorf("streaming download: %w", ErrDownload)
	}
	if closeErr != nil {
		return 0, closeErr
	}
	if written > p.maxBytes {
		return 0, fmt.Errorf("stream passed the cap: %w", ErrSizeLimit)
	}
	return written, nil
}

// safeName strips path separators so an upstream filename can never
// escape the download directory.
func safeName(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" || name == "." || name == ".." {
		name = "terabox_video.mp4"
	}
	return name
}
