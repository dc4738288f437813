package telemetry

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Telemetry receives progress events from every pipeline stage. Stages must
// treat all implementations alike.
type Telemetry interface {
	WaitingForBuildDirectoryLock()
	ResolvingPackageVersions()
	DownloadingPackage(name string)
	PackagesDownloaded(start time.Time, count int)
	CompilingPackage(name string)
	CompiledPackage(duration time.Duration)
	CheckingPackage(name string)
	CheckedPackage(duration time.Duration)
	Running(name string)
}

// Select returns the silent sink when noPrintProgress is set, otherwise a
// Reporter writing to out.
func Select(noPrintProgress bool, out io.Writer, colour bool) Telemetry {
	if noPrintProgress {
		return Null{}
	}
	return NewReporter(out, colour)
}

const prefixWidth = 11

// Reporter renders progress to a terminal, one line per event.
type Reporter struct {
	mu     sync.Mutex
	out    io.Writer
	colour bool
	prefix lipgloss.Style
	notice lipgloss.Style
}

// NewReporter creates a reporter writing to out. Dependency downloads report
// concurrently, so writes are serialised.
func NewReporter(out io.Writer, colour bool) *Reporter {
	r := lipgloss.NewRenderer(out)
	return &Reporter{
		out:    out,
		colour: colour,
		prefix: r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Width(prefixWidth).Align(lipgloss.Right),
		notice: r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
	}
}

func (r *Reporter) WaitingForBuildDirectoryLock() {
	r.line(r.notice, "Waiting", "for build directory lock")
}

func (r *Reporter) ResolvingPackageVersions() {
	r.line(r.prefix, "Resolving", "versions")
}

func (r *Reporter) DownloadingPackage(name string) {
	r.line(r.prefix, "Downloading", name)
}

func (r *Reporter) PackagesDownloaded(start time.Time, count int) {
	noun := "packages"
	if count == 1 {
		noun = "package"
	}
	r.line(r.prefix, "Downloaded", fmt.Sprintf("%d %s in %s", count, noun, seconds(time.Since(start))))
}

func (r *Reporter) CompilingPackage(name string) {
	r.line(r.prefix, "Compiling", name)
}

func (r *Reporter) CompiledPackage(duration time.Duration) {
	r.line(r.prefix, "Compiled", "in "+seconds(duration))
}

func (r *Reporter) CheckingPackage(name string) {
	r.line(r.prefix, "Checking", name)
}

func (r *Reporter) CheckedPackage(duration time.Duration) {
	r.line(r.prefix, "Checked", "in "+seconds(duration))
}

func (r *Reporter) Running(name string) {
	r.line(r.prefix, "Running", name)
}

func (r *Reporter) line(style lipgloss.Style, verb, detail string) {
	var prefix string
	if r.colour {
		prefix = style.Render(verb)
	} else {
		prefix = fmt.Sprintf("%*s", prefixWidth, verb)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %s\n", prefix, detail)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Null discards every event.
type Null struct{}

func (Null) WaitingForBuildDirectoryLock() {}
func (Null) ResolvingPackageVersions() {}
func (Null) DownloadingPackage(string) {}
func (Null) PackagesDownloaded(time.Time, int) {}
func (Null) CompilingPackage(string) {}
func (Null) CompiledPackage(time.Duration) {}
func (Null) CheckingPackage(string) {}
func (Null) CheckedPackage(time.Duration) {}
func (Null) Running(string) {}

var (
	_ Telemetry = (*Reporter)(nil)
	_ Telemetry = Null{}
)
