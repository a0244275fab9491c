// Package gitsmart bridges the git smart HTTP protocol onto the local
// git toolchain: reference advertisement and pack exchange both shell out
// to the service binaries in stateless-RPC mode against a bare repository
// path.
package gitsmart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Service is one of the two smart HTTP pack services.
type Service string

const (
	UploadPack  Service = "git-upload-pack"
	ReceivePack Service = "git-receive-pack"
)

// ParseService validates a service name from the wire.
func ParseService(name string) (Service, bool) {
	switch Service(name) {
	case UploadPack, ReceivePack:
		return Service(name), true
	}
	return "", false
}

// subcommand is the git subcommand implementing the service.
func (s Service) subcommand() string {
	if s == ReceivePack {
		return "receive-pack"
	}
	return "upload-pack"
}

// AdvertisementType is the Content-Type for the info/refs response.
func (s Service) AdvertisementType() string {
	return fmt.Sprintf("application/x-%s-advertisement", s)
}

// ResultType is the Content-Type for the pack exchange response.
func (s Service) ResultType() string {
	return fmt.Sprintf("application/x-%s-result", s)
}

// Bridge invokes the configured git binary against resolved repository
// paths. It performs no existence or permission checks; callers resolve
// and authorize the repository first.
type Bridge struct {
	git    string
	logger *slog.Logger
}

func NewBridge(gitBinary string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{git: gitBinary, logger: logger}
}

// AdvertiseRefs runs the service in advertise-refs mode and returns the
// pkt-line service announcement followed by the raw advertisement bytes.
func (b *Bridge) AdvertiseRefs(ctx context.Context, svc Service, repoPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, b.git, svc.subcommand(), "--stateless-rpc", "--advertise-refs", repoPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.Output()
	if err != nil {
		b.logger.Error("git advertise-refs failed",
			"command", cmd.Args, "stderr", stderr.String(), "error", err)
		return nil, fmt.Errorf("run %s: %w", svc, err)
	}

	body := serviceHeader(svc)
	return append(body, stdout...), nil
}

// ExchangePack runs the service in stateless-RPC mode, copying body into
// its stdin while its stdout streams into out. The input copy runs on its
// own goroutine so a client pausing mid-upload cannot deadlock the
// response; a failed upload copy still lets the output drain and the
// subprocess exit. The subprocess is awaited after both copies settle.
func (b *Bridge) ExchangePack(ctx context.Context, svc Service, repoPath string, body io.Reader, out io.Writer) error {
	cmd := exec.CommandContext(ctx, b.git, svc.subcommand(), "--stateless-rpc", repoPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("pipe stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pipe stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		b.logger.Error("git pack service failed to spawn", "command", cmd.Args, "error", err)
		return fmt.Errorf("spawn %s: %w", svc, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		// Closing stdin on EOF tells git the request is complete.
		defer stdin.Close()
		_, err := io.Copy(stdin, body)
		return err
	})

	_, outErr := io.Copy(out, stdout)

	if inErr := g.Wait(); inErr != nil {
		b.logger.Error("copy request body to git failed", "command", cmd.Args, "error", inErr)
	}
	if err := cmd.Wait(); err != nil {
		b.logger.Error("git pack service failed",
			"command", cmd.Args, "stderr", stderr.String(), "error", err)
		return fmt.Errorf("run %s: %w", svc, err)
	}
	if outErr != nil {
		return fmt.Errorf("stream %s response: %w", svc, outErr)
	}
	return nil
}
