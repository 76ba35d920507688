package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"pkt.systems/dropterm/core"
	"pkt.systems/dropterm/schema"
	"pkt.systems/pslog"
)

type source struct {
	reader io.Reader
	kind   schema.StreamKind
	tty    bool
}

type combinedStream struct {
	outputs chan core.CommandOutput
	drained chan struct{}
	errMu   sync.Mutex
	err     error
	wg      sync.WaitGroup
	log     pslog.Logger
}

func newCombinedStream(log pslog.Logger, sources ...source) *combinedStream {
	stream := &combinedStream{
		outputs: make(chan core.CommandOutput, 256),
		drained: make(chan struct{}),
		log:     log,
	}
	stream.wg.Add(len(sources))
	for _, src := range sources {
		go stream.read(src)
	}
	go func() {
		stream.wg.Wait()
		close(stream.outputs)
		close(stream.drained)
	}()
	return stream
}

// maxChunkBytes caps one output chunk. Longer lines are split into
// consecutive chunks so the pipe keeps draining.
const maxChunkBytes = 1024 * 1024

func (s *combinedStream) read(src source) {
	defer s.wg.Done()
	reader := bufio.NewReaderSize(src.reader, 64*1024)
	var line []byte
	count := 0
	split := false
	emit := func(text []byte) {
		count++
		s.outputs <- core.CommandOutput{Stream: src.kind, Text: string(text)}
	}
	for {
		frag, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(line) > 0 {
				emit(line)
			}
			if !errors.Is(err, io.EOF) && !benignReadError(err, src.tty) {
				s.log.Warn("shell exec output read failed", "stream", src.kind, "err", err)
				s.setErr(err)
			}
			break
		}
		line = append(line, frag...)
		for len(line) >= maxChunkBytes {
			emit(line[:maxChunkBytes])
			line = append(line[:0], line[maxChunkBytes:]...)
			split = true
		}
		if isPrefix {
			continue
		}
		if len(line) > 0 || !split {
			emit(line)
		}
		line = line[:0]
		split = false
	}
	s.log.Trace("shell exec output drained", "stream", src.kind, "lines", count)
}

// benignReadError reports errors that only mark the end of output: a closed
// reader, or EIO from a pty master whose slave side hung up.
func benignReadError(err error, tty bool) bool {
	if errors.Is(err, os.ErrClosed) {
		return true
	}
	return tty && errors.Is(err, syscall.EIO)
}

func (s *combinedStream) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *combinedStream) Next(ctx context.Context) (core.CommandOutput, error) {
	select {
	case <-ctx.Done():
		return core.CommandOutput{}, ctx.Err()
	case out, ok := <-s.outputs:
		if ok {
			return out, nil
		}
		s.errMu.Lock()
		err := s.err
		s.errMu.Unlock()
		if err != nil {
			return core.CommandOutput{}, err
		}
		return core.CommandOutput{}, io.EOF
	}
}

func (s *combinedStream) Close() error {
	return nil
}
