package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/me/makespan/pkg/model"
)

// TaskMetrics holds the outcome of a single solver task.
type TaskMetrics struct {
	TaskID      string           `json:"task_id"`
	Algorithm   model.Algorithm  `json:"algorithm"`
	Config      string           `json:"config,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	Duration    time.Duration    `json:"duration_ns"`
	DurationStr string           `json:"duration"`
	Waited      time.Duration    `json:"waited_ns,omitempty"` // for a thread slot
	CMax        uint32           `json:"c_max,omitempty"`
	Status      model.TaskStatus `json:"status"`
}

// RunMetrics holds aggregate metrics for an entire run.
type RunMetrics struct {
	RunID         string         `json:"run_id,omitempty"`
	StartTime     time.Time      `json:"start_time"`
	Duration      time.Duration  `json:"duration_ns"`
	DurationStr   string         `json:"duration"`
	State         model.RunState `json:"state"`
	TotalTasks    int            `json:"total_tasks"`
	Satisfiable   int            `json:"satisfiable"`
	Unsatisfiable int            `json:"unsatisfiable"`
	Cancelled     int            `json:"cancelled"`
	Panicked      int            `json:"panicked"`
	Tasks         []TaskMetrics  `json:"tasks"`

	mu sync.Mutex // Protects Tasks slice for concurrent access
}

// MetricsCollector collects task outcomes during a run.
type MetricsCollector struct {
	enabled bool
	run     *RunMetrics
}

// NewMetricsCollector creates a new metrics collector.
// If enabled is false, all operations are no-ops.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	mc := &MetricsCollector{enabled: enabled}
	if enabled {
		mc.run = &RunMetrics{
			StartTime: time.Now(),
			Tasks:     make([]TaskMetrics, 0),
		}
	}
	return mc
}

// SetRunID sets the run ID for metrics.
func (mc *MetricsCollector) SetRunID(id string) {
	if mc == nil || !mc.enabled || mc.run == nil {
		return
	}
	mc.run.RunID = id
}

// SetTotalTasks sets the total number of scheduled tasks.
func (mc *MetricsCollector) SetTotalTasks(count int) {
	if mc == nil || !mc.enabled || mc.run == nil {
		return
	}
	mc.run.TotalTasks = count
}

// RecordTask records metrics for a finished task.
func (mc *MetricsCollector) RecordTask(metrics TaskMetrics) {
	if mc == nil || !mc.enabled || mc.run == nil {
		return
	}

	metrics.DurationStr = formatDuration(metrics.Duration)

	mc.run.mu.Lock()
	defer mc.run.mu.Unlock()

	mc.run.Tasks = append(mc.run.Tasks, metrics)

	switch metrics.Status {
	case model.TaskStatusSatisfiable:
		mc.run.Satisfiable++
	case model.TaskStatusUnsatisfiable:
		mc.run.Unsatisfiable++
	case model.TaskStatusCancelled:
		mc.run.Cancelled++
	case model.TaskStatusPanicked:
		mc.run.Panicked++
	}
}

// Finalize completes the run metrics collection.
func (mc *MetricsCollector) Finalize(state model.RunState) *RunMetrics {
	if mc == nil || !mc.enabled || mc.run == nil {
		return nil
	}

	mc.run.mu.Lock()
	defer mc.run.mu.Unlock()

	mc.run.State = state
	mc.run.Duration = time.Since(mc.run.StartTime)
	mc.run.DurationStr = formatDuration(mc.run.Duration)

	sort.Slice(mc.run.Tasks, func(i, j int) bool {
		return mc.run.Tasks[i].StartTime.Before(mc.run.Tasks[j].StartTime)
	})

	return mc.run
}

// Enabled returns true if metrics collection is enabled.
func (mc *MetricsCollector) Enabled() bool {
	return mc != nil && mc.enabled
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
}

// PrintMetricsSummary prints a formatted summary of run metrics.
func PrintMetricsSummary(w io.Writer, m *RunMetrics) {
	if m == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Run Summary ===")
	if m.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", m.RunID)
	}
	fmt.Fprintf(w, "State: %s\n", m.State)
	fmt.Fprintf(w, "Total Duration: %s\n", m.DurationStr)
	fmt.Fprintln(w)

	if len(m.Tasks) > 0 {
		maxTaskLen := 4 // "Task"
		for _, task := range m.Tasks {
			if len(task.TaskID) > maxTaskLen {
				maxTaskLen = len(task.TaskID)
			}
		}
		if maxTaskLen > 40 {
			maxTaskLen = 40
		}

		fmt.Fprintf(w, "%-*s  %12s  %10s  %8s  %s\n", maxTaskLen, "Task", "Duration", "Waited", "C_max", "Status")
		fmt.Fprintln(w, strings.Repeat("-", maxTaskLen+52))

		for _, task := range m.Tasks {
			taskID := task.TaskID
			if len(taskID) > maxTaskLen {
				taskID = taskID[:maxTaskLen-3] + "..."
			}

			statusIcon := "✓"
			switch task.Status {
			case model.TaskStatusUnsatisfiable:
				statusIcon = "✗"
			case model.TaskStatusCancelled:
				statusIcon = "○"
			case model.TaskStatusPanicked:
				statusIcon = "!"
			}

			cmax := "-"
			if task.CMax > 0 {
				cmax = fmt.Sprintf("%d", task.CMax)
			}

			waited := "-"
			if task.Waited > 0 {
				waited = formatDuration(task.Waited)
			}

			fmt.Fprintf(w, "%-*s  %12s  %10s  %8s  %s %s\n",
				maxTaskLen, taskID,
				task.DurationStr,
				waited,
				cmax,
				statusIcon, task.Status)
		}

		fmt.Fprintln(w, strings.Repeat("-", maxTaskLen+52))

		fmt.Fprintf(w, "Tasks: %d satisfiable", m.Satisfiable)
		if m.Unsatisfiable > 0 {
			fmt.Fprintf(w, ", %d unsatisfiable", m.Unsatisfiable)
		}
		if m.Cancelled > 0 {
			fmt.Fprintf(w, ", %d cancelled", m.Cancelled)
		}
		if m.Panicked > 0 {
			fmt.Fprintf(w, ", %d panicked", m.Panicked)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
}
