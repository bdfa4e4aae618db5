/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: progress.go
Description: Single-line scan progress on a terminal. Implements core.Reporter and
redraws a width-clipped status line for every folded file.
*/

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kleascm/bytesleuth/pkg/core"
	"golang.org/x/term"
)

// progress draws fold progress on one terminal line
type progress struct {
	out   io.Writer
	width func() int
	mu    sync.Mutex
	drawn bool
}

// newProgress returns a progress line on f, or nil when f is not a terminal
func newProgress(f *os.File) *progress {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return &progress{
		out: f,
		width: func() int {
			w, _, err := term.GetSize(fd)
			if err != nil || w <= 0 {
				return 80
			}
			return w
		},
	}
}

// OnFileFolded implements core.Reporter
func (p *progress) OnFileFolded(event core.FoldEvent) {
	line := fmt.Sprintf("[%d/%d] hope %d, active %d  %s",
		event.Folded, event.Total, event.Hope, event.Active, filepath.Base(event.Path))
	p.draw(line)
}

// OnFileSkipped implements core.Reporter
func (p *progress) OnFileSkipped(*core.FileError) {}

// draw replaces the current line with line clipped to the terminal width
func (p *progress) draw(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\r%s\033[K", clip(line, p.width()-1))
	p.drawn = true
}

// Done clears the progress line
func (p *progress) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}
}

// clip shortens s to width columns
func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return strings.TrimRight(string(r[:width]), " ")
}
