/*package parallel provides the range-partitioned kernel launcher that the
refiner, colourer, slicer, and texture fills run on, along with the futures
and main-thread dispatch primitives that keep scene graph mutation off the
workers.
*/
package parallel

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrCancelled marks a kernel that observed task cancellation and
	// returned early. Callers discard the partial result.
	ErrCancelled = errors.New("parallel: task cancelled")
	// ErrTimeout marks a future that expired before being set.
	ErrTimeout = errors.New("parallel: future timed out")
)

// Task is the progress sink kernels report to. A nil-safe no-op
// implementation is available as NullTask.
type Task interface {
	SetLabel(label string)
	SetMaxProgress(n int)
	SetProgress(n int)
	Cancelled() bool
}

// NullTask ignores progress and never cancels.
type NullTask struct{}

func (NullTask) SetLabel(string)   {}
func (NullTask) SetMaxProgress(int) {}
func (NullTask) SetProgress(int)    {}
func (NullTask) Cancelled() bool    { return false }

// Range is a half-open row interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of rows in the range.
func (r Range) Len() int { return r.End - r.Start }

// Kernel processes one worker's row range. Kernels poll the task for
// cancellation at their own granularity and must not mutate non-shared
// matrices they do not own.
type Kernel func(worker int, rows Range) error

// AutoProcs picks a worker count for a row total: one worker per thousand
// rows, at least 1, at most the machine's core count.
func AutoProcs(total int) int {
	procs := total / 1000
	if procs < 1 {
		procs = 1
	}
	if hw := runtime.NumCPU(); procs > hw {
		procs = hw
	}
	return procs
}

// Partition splits [0, total) into procs contiguous ranges whose sizes
// differ by at most one.
func Partition(total, procs int) []Range {
	out := make([]Range, procs)
	base, rem := total/procs, total%procs
	start := 0
	for i := range out {
		n := base
		if i < rem {
			n++
		}
		out[i] = Range{start, start + n}
		start += n
	}
	return out
}

// RunRanged partitions [0, total) over procs workers and runs the kernel on
// each range concurrently. procs == 0 selects AutoProcs(total). The last
// range runs on the calling goroutine. The result map has one entry per
// worker index; worker panics are captured as errors rather than crossing
// the launch boundary.
func RunRanged(total, procs int, task Task, kern Kernel) map[int]error {
	if task == nil {
		task = NullTask{}
	}
	if procs <= 0 {
		procs = AutoProcs(total)
	}
	ranges := Partition(total, procs)
	task.SetMaxProgress(total)

	type res struct {
		worker int
		err    error
	}
	out := make(chan res, procs)

	run := func(id int) {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("parallel: worker %d panicked: %v", id, p)
			}
			out <- res{id, err}
		}()
		err = kern(id, ranges[id])
	}

	for id := 0; id < procs-1; id++ {
		go run(id)
	}
	run(procs - 1)

	results := make(map[int]error, procs)
	for i := 0; i < procs; i++ {
		r := <-out
		results[r.worker] = r.err
	}
	return results
}

// CheckResultMap returns the error of the lowest-indexed failing worker, so
// repeated runs surface a deterministic failure.
func CheckResultMap(results map[int]error) error {
	for id := 0; id < len(results); id++ {
		if err := results[id]; err != nil {
			return err
		}
	}
	return nil
}
