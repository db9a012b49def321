package classifier

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// maxResponseSize bounds a single worker reply.
const maxResponseSize = 16 << 20

// PythonWorker runs a DeepFace script as a child process and exchanges
// length-prefixed messages with it: frames go out on stdin, results come back on a
// side-channel pipe that the child sees as fd 3.
type PythonWorker struct {
	python string
	script string

	cmd      *exec.Cmd
	stdin    io.WriteCloser
	dataPipe io.ReadCloser
	restarts int
}

// workerResponse is the JSON body written by the python worker
type workerResponse struct {
	Emotion map[string]float64 `json:"emotion"`
	Region  *Region            `json:"region"`
	Error   string             `json:"error"`
}

// NewPythonWorker prepares a worker; the process starts on the first Analyze call.
func NewPythonWorker(python, script string) *PythonWorker {
	return &PythonWorker{python: python, script: script}
}

func (w *PythonWorker) Name() string { return "python" }

func (w *PythonWorker) start() error {
	cmd := exec.Command(w.python, "-u", w.script)
	cmd.Stderr = os.Stderr

	r, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	// The write end shows up as fd 3 in the child.
	cmd.ExtraFiles = []*os.File{pw}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("python worker failed to start: %w", err)
	}

	// Only the child keeps the write end open, so its exit surfaces as EOF here.
	pw.Close()

	w.cmd = cmd
	w.stdin = stdin
	w.dataPipe = r

	log.Info().
		Str("python", w.python).
		Str("script", w.script).
		Int("pid", cmd.Process.Pid).
		Int("restarts", w.restarts).
		Msg("Python emotion worker started")
	return nil
}

func (w *PythonWorker) Analyze(ctx context.Context, jpeg []byte) (RawResult, error) {
	if w.stdin == nil {
		if err := w.start(); err != nil {
			return RawResult{}, err
		}
	}

	// A deadline on ctx kills the child; the blocked read then fails with EOF.
	if ctx.Done() != nil {
		cmd := w.cmd
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				if cmd != nil && cmd.Process != nil {
					cmd.Process.Kill()
				}
			case <-done:
			}
		}()
	}

	body, err := w.communicate(jpeg)
	if err != nil {
		w.reset()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RawResult{}, fmt.Errorf("python worker interrupted: %w", ctxErr)
		}
		return RawResult{}, fmt.Errorf("python worker exchange failed: %w", err)
	}

	return decodeWorkerResponse(body)
}

// communicate writes [len][frame] and reads back [len][body].
func (w *PythonWorker) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.dataPipe, header); err != nil {
		return nil, err // the child crashed (missing deepface, OOM, ...)
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponseSize {
		return nil, fmt.Errorf("response of %d bytes exceeds limit", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.dataPipe, respBody)
	return respBody, err
}

func decodeWorkerResponse(body []byte) (RawResult, error) {
	var resp workerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RawResult{}, fmt.Errorf("invalid python worker response: %w", err)
	}
	if resp.Error != "" {
		return RawResult{}, fmt.Errorf("python worker error: %s", resp.Error)
	}
	if resp.Emotion == nil {
		return RawResult{}, errors.New("python worker returned no emotion scores")
	}
	return RawResult{Emotion: resp.Emotion, Region: resp.Region}, nil
}

// reset drops a broken worker so the next call starts a fresh one.
func (w *PythonWorker) reset() {
	w.Close()
	w.restarts++
}

// Shutdown closes the worker and kills the child if it is still running when ctx ends.
func (w *PythonWorker) Shutdown(ctx context.Context) error {
	if w.stdin == nil {
		return nil
	}

	cmd := w.cmd
	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if cmd != nil && cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return fmt.Errorf("python worker killed on shutdown: %w", ctx.Err())
	}
}

func (w *PythonWorker) Close() error {
	if w.stdin == nil {
		return nil
	}

	w.stdin.Close()
	w.dataPipe.Close()
	if w.cmd != nil {
		if err := w.cmd.Wait(); err != nil {
			log.Debug().Err(err).Msg("Python emotion worker exited")
		}
	}

	w.cmd = nil
	w.stdin = nil
	w.dataPipe = nil
	return nil
}
