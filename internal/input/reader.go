// Package input reads write requests as newline-delimited JSON.
//
// Each non-blank line is one object:
//
//	{"index": "0x2000", "subindex": 1, "payload": 42}
package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/devwrite/internal/domain"
	"github.com/bft-labs/devwrite/internal/ports"
)

// MaxLineSize is the longest accepted input line.
const MaxLineSize = 1 << 20

// Submitter accepts raw events. *devwrite.Node implements it.
type Submitter interface {
	Submit(raw domain.RawEvent) error
}

// Reader decodes events from a stream and hands them to a Submitter.
type Reader struct {
	r         io.Reader
	submitter Submitter
	reporter  ports.ErrorReporter
	logger    ports.Logger
}

// NewReader creates a Reader. Lines that are not valid JSON objects are
// reported to reporter as invalid requests and skipped.
func NewReader(r io.Reader, submitter Submitter, reporter ports.ErrorReporter, logger ports.Logger) *Reader {
	if reporter == nil {
		reporter = ports.ErrorReporterFunc(func(error) {})
	}
	return &Reader{r: r, submitter: submitter, reporter: reporter, logger: logger}
}

// Stats counts what Run did with the input.
type Stats struct {
	Lines     int
	Submitted int
	Rejected  int
}

// Run reads until EOF, ctx is done or the submitter stops accepting.
// Rejected requests do not stop the reader. It returns nil at EOF.
func (r *Reader) Run(ctx context.Context) (Stats, error) {
	var st Stats

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for sc.Scan() {
			line := bytes.Clone(sc.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return st, fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return st, nil
			}

			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			st.Lines++

			raw, err := Decode(line)
			if err != nil {
				st.Rejected++
				r.logger.Warn("input line rejected", ports.Int("line", st.Lines), ports.Err(err))
				r.reporter.ReportError(err)
				continue
			}

			err = r.submitter.Submit(raw)
			switch {
			case err == nil:
				st.Submitted++
			case errors.Is(err, domain.ErrInvalidRequest):
				st.Rejected++
			default:
				return st, err
			}
		}
	}
}

// Decode parses one line. Numbers are kept as json.Number so that large
// addresses are not rounded through float64.
func Decode(line []byte) (domain.RawEvent, error) {
	var raw domain.RawEvent
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return raw, &domain.RequestError{Field: "input", Reason: "not a JSON object: " + err.Error()}
	}
	if dec.More() {
		return raw, &domain.RequestError{Field: "input", Reason: "trailing data after JSON object"}
	}
	return raw, nil
}
