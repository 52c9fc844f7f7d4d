package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	applogger "ChartVerdict/pkg/logger"
)

// ProcessClassifier runs a local analyzer program once per image. The image is
// written to uploadDir, passed as the last argument and removed afterwards.
type ProcessClassifier struct {
	command   string
	args      []string
	uploadDir string
	timeout   time.Duration
	l         *applogger.Logger
}

func NewProcessClassifier(command string, args []string, uploadDir string, timeout time.Duration, l *applogger.Logger) (*ProcessClassifier, error) {
	if command == "" {
		return nil, errors.New("classifier command is required")
	}
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ProcessClassifier{
		command:   command,
		args:      append([]string(nil), args...),
		uploadDir: uploadDir,
		timeout:   timeout,
		l:         l,
	}, nil
}

// Classify implements domrepo.ChartClassifier.
func (p *ProcessClassifier) Classify(ctx context.Context, img models.ChartImage) (models.ChartSignal, error) {
	if len(img.Data) == 0 {
		return models.ChartSignal{}, domrepo.NewClassificationError("empty image", nil)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	path := filepath.Join(p.uploadDir, uuid.NewString()+extension(img))
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return models.ChartSignal{}, domrepo.NewClassificationError("store upload", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.l.Warn("remove upload failed", applogger.String("path", path), applogger.Error(err))
		}
	}()

	start := time.Now()
	var stdout, stderr bytes.Buffer
	argv := make([]string, 0, len(p.args)+1)
	argv = append(append(argv, p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, argv...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// grandchildren may hold the output pipes open after the kill
	cmd.WaitDelay = time.Second
	runErr := cmd.Run()

	p.l.Debug("classifier finished",
		applogger.String("command", p.command),
		applogger.Duration("elapsed", time.Since(start)),
		applogger.Int("stdout_bytes", stdout.Len()),
	)

	switch err := ctx.Err(); {
	case errors.Is(err, context.DeadlineExceeded):
		return models.ChartSignal{}, domrepo.NewClassificationError("timeout", err)
	case err != nil:
		return models.ChartSignal{}, domrepo.NewClassificationError("cancelled", err)
	}

	sig, parseErr := Parse(stdout.Bytes())
	if runErr != nil {
		// the analyzer reports {"error": ...} on stdout before exiting non-zero
		var reason errorReason
		if errors.As(parseErr, &reason) {
			return models.ChartSignal{}, domrepo.NewClassificationError(string(reason), runErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			runErr = fmt.Errorf("%w: %s", runErr, truncate(msg, 512))
		}
		return models.ChartSignal{}, domrepo.NewClassificationError("analyzer failed", runErr)
	}
	if parseErr != nil {
		var reason errorReason
		if errors.As(parseErr, &reason) {
			return models.ChartSignal{}, domrepo.NewClassificationError(string(reason), nil)
		}
		return models.ChartSignal{}, domrepo.NewClassificationError("invalid output", parseErr)
	}
	return sig, nil
}

// extension keeps the upload's file extension so the analyzer can sniff the format.
func extension(img models.ChartImage) string {
	if ext := strings.ToLower(filepath.Ext(img.Filename)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if img.ContentType != "" {
		if exts, err := mime.ExtensionsByType(img.ContentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".png"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ domrepo.ChartClassifier = (*ProcessClassifier)(nil)
