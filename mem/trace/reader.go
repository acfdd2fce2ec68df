package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformedLine is wrapped by the errors returned for lines that cannot
// be parsed.
var ErrMalformedLine = errors.New("malformed trace line")

// An Access is one event of a trace.
type Access struct {
	Line    int
	IsRead  bool
	Address uint64
	Size    int
}

// A Reader parses a trace, one access per line.
//
// Each line reads "<op> <address> [size]". The op is r, R, l or L for reads
// and w, W, s or S for writes. The address is hexadecimal, with or without
// the 0x prefix. The size is decimal and defaults to 1. Blank lines and
// lines starting with # are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader that parses r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next access. It returns io.EOF after the last access.
func (r *Reader) Next() (Access, error) {
	for r.scanner.Scan() {
		r.line++

		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		return ParseLine(r.line, text)
	}

	if err := r.scanner.Err(); err != nil {
		return Access{}, fmt.Errorf("reading trace: %w", err)
	}

	return Access{}, io.EOF
}

// ReadAll parses the whole trace.
func ReadAll(r io.Reader) ([]Access, error) {
	reader := NewReader(r)
	accesses := []Access{}

	for {
		access, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return accesses, nil
		}

		if err != nil {
			return nil, err
		}

		accesses = append(accesses, access)
	}
}

// ParseLine parses a single non-empty trace line.
func ParseLine(line int, text string) (Access, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 3 {
		return Access{}, fmt.Errorf("%w: line %d: expected 2 or 3 fields, "+
			"got %d", ErrMalformedLine, line, len(fields))
	}

	access := Access{Line: line, Size: 1}

	switch fields[0] {
	case "r", "R", "l", "L":
		access.IsRead = true
	case "w", "W", "s", "S":
		access.IsRead = false
	default:
		return Access{}, fmt.Errorf("%w: line %d: unknown op %q",
			ErrMalformedLine, line, fields[0])
	}

	addr := strings.TrimPrefix(strings.TrimPrefix(fields[1], "0x"), "0X")

	address, err := strconv.ParseUint(addr, 16, 64)
	if err != nil {
		return Access{}, fmt.Errorf("%w: line %d: bad address %q",
			ErrMalformedLine, line, fields[1])
	}

	access.Address = address

	if len(fields) == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size <= 0 {
			return Access{}, fmt.Errorf("%w: line %d: bad size %q",
				ErrMalformedLine, line, fields[2])
		}

		access.Size = size
	}

	return access, nil
}
