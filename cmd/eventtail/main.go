// Command eventtail inspects run event logs: it prints the event stream for
// a log file or a specific run and summarizes stage outcomes.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"conductor/pkg/eventlog"
)

func main() {
	var (
		logFile = flag.String("log", "", "path to an events-*.jsonl log file")
		logDir  = flag.String("dir", "logs", "log directory, used when -log is not set")
		runID   = flag.String("run", "", "only show events for this run ID")
		summary = flag.Bool("summary", false, "print per-run stage outcome summary instead of raw events")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Event Tail - Run Event Log Inspector\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [-log <events.jsonl>] [-run <run-id>] [-summary]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s -log logs/events-2026-08-23.jsonl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dir logs -summary\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	events, err := loadEvents(*logFile, *logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "eventtail: %v\n", err)
		os.Exit(1)
	}

	if *runID != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.RunID == *runID {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if len(events) == 0 {
		fmt.Println("no events found")
		return
	}

	if *summary {
		printSummary(events)
		return
	}

	for _, e := range events {
		printEvent(e)
	}
}

func loadEvents(logFile, logDir string) ([]*eventlog.RunEvent, error) {
	if logFile != "" {
		return eventlog.ReadEvents(logFile)
	}

	files, err := eventlog.ListLogFiles(logDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no event logs found in %s", logDir)
	}
	sort.Strings(files)

	var all []*eventlog.RunEvent
	for _, f := range files {
		events, err := eventlog.ReadEvents(f)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}

func printEvent(e *eventlog.RunEvent) {
	line := fmt.Sprintf("%s  %-20s run=%s", e.Timestamp.Format("2006-01-02 15:04:05"), e.EventType, shortID(e.RunID))
	if e.StageID != "" {
		line += fmt.Sprintf(" stage=%s", e.StageID)
	}
	if e.Role != "" {
		line += fmt.Sprintf(" role=%s", e.Role)
	}
	if e.Reason != "" {
		line += fmt.Sprintf(" reason=%q", e.Reason)
	}
	fmt.Println(line)
}

// runSummary accumulates per-run stage outcomes in event order.
type runSummary struct {
	runID     string
	completed int
	failures  int
	aborted   bool
	finished  bool
}

func printSummary(events []*eventlog.RunEvent) {
	summaries := make(map[string]*runSummary)
	var order []string

	for _, e := range events {
		s, ok := summaries[e.RunID]
		if !ok {
			s = &runSummary{runID: e.RunID}
			summaries[e.RunID] = s
			order = append(order, e.RunID)
		}
		switch e.EventType {
		case eventlog.EventStageCompleted:
			s.completed++
		case eventlog.EventLlmFailure, eventlog.EventStageFailed:
			s.failures++
		case eventlog.EventRunAborted:
			s.aborted = true
		case eventlog.EventRunCompleted:
			s.finished = true
		}
	}

	for _, id := range order {
		s := summaries[id]
		state := "in progress"
		switch {
		case s.aborted:
			state = "aborted"
		case s.finished:
			state = "completed"
		}
		fmt.Printf("run %s: %s, %d stages completed, %d failures\n",
			shortID(s.runID), state, s.completed, s.failures)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
