package openai

import (
	"context"
	"io"
	"sync"
)

// stream adapts langchaingo's push-style streaming callback to the pull-based
// ai.TokenStream. The producer goroutine sets err before closing fragments,
// so a reader that sees the closed channel also sees the final error.
type stream struct {
	fragments chan string
	err       error
	cancel    context.CancelFunc
	closeOnce sync.Once

	pending    string
	hasPending bool
}

func newStream(cancel context.CancelFunc) *stream {
	return &stream{
		fragments: make(chan string),
		cancel:    cancel,
	}
}

// push hands one fragment to the reader, giving up when ctx ends.
func (s *stream) push(ctx context.Context, fragment string) error {
	select {
	case s.fragments <- fragment:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish records the producer's outcome and ends the stream.
func (s *stream) finish(err error) {
	s.err = err
	close(s.fragments)
}

// Next returns the next fragment, io.EOF at the end of the answer, or the
// producer's error.
func (s *stream) Next(ctx context.Context) (string, error) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, nil
	}
	select {
	case fragment, ok := <-s.fragments:
		if ok {
			return fragment, nil
		}
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close cancels the producer and waits for it to let go of the stream.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.fragments {
		}
	})
	return nil
}

// prime waits for the first fragment so that a provider failure before any
// output can be reported by Generate itself. The fragment is replayed by the
// next call to Next.
func (s *stream) prime(ctx context.Context) error {
	fragment, err := s.Next(ctx)
	switch {
	case err == io.EOF:
		return nil
	case err != nil:
		return err
	}
	s.pending = fragment
	s.hasPending = true
	return nil
}
