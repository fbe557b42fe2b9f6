package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/cwygoda/get/internal/domain"
)

// groupSelector picks a bucket from the --group flag, or by asking on a
// terminal.
type groupSelector struct {
	choice      int
	in          io.Reader
	out         io.Writer
	interactive bool
}

func newGroupSelector(choice int, in io.Reader, out io.Writer) *groupSelector {
	return &groupSelector{
		choice:      choice,
		in:          in,
		out:         out,
		interactive: isTerminal(in),
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (s *groupSelector) Select(buckets []domain.Bucket) (int, error) {
	if s.choice > 0 {
		return s.choice - 1, nil
	}

	fmt.Fprintln(s.out, renderGroups(buckets))
	if !s.interactive {
		return 0, fmt.Errorf("%w: %d groups found, pick one with --group", domain.ErrInvalidGroup, len(buckets))
	}

	fmt.Fprintf(s.out, "Select group [1-%d]: ", len(buckets))
	line, err := bufio.NewReader(s.in).ReadString('\n')
	if err != nil && line == "" {
		return 0, fmt.Errorf("read group selection: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidGroup, strings.TrimSpace(line))
	}
	return n - 1, nil
}
