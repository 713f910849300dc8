// Package media tracks and performs downloads of media linked from Reddit
// posts. Job is an immutable snapshot of one download's lifecycle; each
// transition produces a new Job through one of the constructors.
package media

import (
	"errors"
	"fmt"
	"time"
)

// ProgressState is the lifecycle stage of a download.
type ProgressState int

// Progress states. Failed and Downloaded are terminal.
const (
	Connecting ProgressState = iota
	InFlight
	Failed
	Downloaded
)

func (s ProgressState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case InFlight:
		return "in_flight"
	case Failed:
		return "failed"
	case Downloaded:
		return "downloaded"
	default:
		return fmt.Sprintf("ProgressState(%d)", int(s))
	}
}

// FailedProgress is the progress value of every Failed job.
const FailedProgress = -1

var (
	// ErrProgressOutOfRange is returned by NewProgress for values outside 0..100.
	ErrProgressOutOfRange = errors.New("media: progress must be between 0 and 100")
	// ErrNoFile is returned by NewDownloaded when no file path is given.
	ErrNoFile = errors.New("media: downloaded job requires a file path")
)

// Link identifies the remote media being fetched.
type Link struct {
	URL   string
	Title string
}

// Job is a snapshot of one download. The zero value is not meaningful; use
// the constructors.
type Job struct {
	link      Link
	state     ProgressState
	progress  int
	file      string
	timestamp time.Time
}

// NewConnecting starts a job: progress 0, no file.
func NewConnecting(link Link, t time.Time) Job {
	return Job{link: link, state: Connecting, timestamp: t}
}

// NewProgress reports an in-flight download at p percent.
func NewProgress(link Link, p int, t time.Time) (Job, error) {
	if p < 0 || p > 100 {
		return Job{}, fmt.Errorf("%w: got %d", ErrProgressOutOfRange, p)
	}

	return Job{link: link, state: InFlight, progress: p, timestamp: t}, nil
}

// NewFailed ends a job unsuccessfully: progress -1, no file.
func NewFailed(link Link, t time.Time) Job {
	return Job{link: link, state: Failed, progress: FailedProgress, timestamp: t}
}

// NewDownloaded ends a job successfully: progress 100, file attached.
func NewDownloaded(link Link, file string, t time.Time) (Job, error) {
	if file == "" {
		return Job{}, ErrNoFile
	}

	return Job{link: link, state: Downloaded, progress: 100, file: file, timestamp: t}, nil
}

func (j Job) Link() Link           { return j.link }
func (j Job) State() ProgressState { return j.state }
func (j Job) Progress() int        { return j.progress }
func (j Job) Timestamp() time.Time { return j.timestamp }

// IsTerminal reports whether the job is Failed or Downloaded.
func (j Job) IsTerminal() bool { return j.state == Failed || j.state == Downloaded }

// File returns the downloaded file path. ok is false unless the job is
// Downloaded.
func (j Job) File() (path string, ok bool) {
	return j.file, j.state == Downloaded
}

func (j Job) String() string {
	switch j.state {
	case InFlight:
		return fmt.Sprintf("%s %s %d%%", j.state, j.link.URL, j.progress)
	case Downloaded:
		return fmt.Sprintf("%s %s -> %s", j.state, j.link.URL, j.file)
	default:
		return fmt.Sprintf("%s %s", j.state, j.link.URL)
	}
}
