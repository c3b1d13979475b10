package generator

import (
	"bufio"
	"io"
	"strings"
)

type sseEvent struct {
	Name string
	Data string
}

// readEvents calls fn for each server-sent event in r until fn returns
// false or the stream ends.
func readEvents(r io.Reader, fn func(sseEvent) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16<<20)

	var ev sseEvent
	var data []string
	dispatch := func() bool {
		if ev.Name == "" && len(data) == 0 {
			return true
		}
		ev.Data = strings.Join(data, "\n")
		cont := fn(ev)
		ev, data = sseEvent{}, nil
		return cont
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}
