package llamaserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// process is one running llama-server.
type process struct {
	cmd     *exec.Cmd
	baseURL string
	stderr  *tailBuffer
	done    chan struct{}
	waitErr error
	log     zerolog.Logger

	stopOnce sync.Once
}

// spawn starts llama-server for model (and projector, if set) and waits until /health answers.
func (l *Loader) spawn(ctx context.Context, model, mmproj string) (*process, error) {
	host := l.opts.Host
	var (
		port int
		err  error
	)
	if l.opts.PortStart > 0 && l.opts.PortEnd >= l.opts.PortStart {
		port, err = pickPortInRange(host, l.opts.PortStart, l.opts.PortEnd)
	} else {
		port, err = pickFreePort(host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	args := []string{"-m", model}
	if mmproj != "" {
		args = append(args, "--mmproj", mmproj)
	}
	args = append(args, "--host", host, "--port", strconv.Itoa(port))
	if l.opts.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(l.opts.CtxSize))
	}
	if l.opts.NGL > 0 {
		args = append(args, "-ngl", strconv.Itoa(l.opts.NGL))
	}
	if l.opts.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(l.opts.Threads))
	}
	args = append(args, l.opts.ExtraArgs...)

	cmd := exec.Command(l.opts.Bin, args...)
	p := &process{cmd: cmd, baseURL: baseURL, stderr: &tailBuffer{max: 4096}, done: make(chan struct{})}
	cmd.Stderr = p.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	p.log = l.log.With().Int("pid", cmd.Process.Pid).Str("model", model).Logger()
	p.log.Info().Str("url", baseURL).Msg("llama-server start")
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	deadline := time.NewTimer(l.opts.ReadyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		if l.healthy(ctx, baseURL) {
			p.log.Info().Msg("llama-server ready")
			return p, nil
		}
		select {
		case <-p.done:
			p.log.Error().Err(p.waitErr).Msg("llama-server exited early")
			return nil, fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", p.waitErr, p.stderr.String())
		case <-deadline.C:
			_ = p.stop()
			return nil, fmt.Errorf("llama-server not ready in %s: %s", l.opts.ReadyTimeout, baseURL)
		case <-ctx.Done():
			_ = p.stop()
			return nil, ctx.Err()
		case <-tick.C:
		}
	}
}

func (l *Loader) healthy(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// stop sends SIGTERM and kills the process if it has not exited after two seconds.
func (p *process) stop() error {
	p.stopOnce.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.done:
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			<-p.done
		}
		p.log.Info().Msg("llama-server stopped")
	})
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[i+1:])
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if len(t.buf) > t.max {
		t.buf = append([]byte(nil), t.buf[len(t.buf)-t.max:]...)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
