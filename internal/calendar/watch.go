package calendar

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zulandar/capstone/internal/events"
)

// Watch emits the event list for view around cursor, then again after every
// task or schedule change in scope. Only the latest list is kept for a slow
// reader. The channel closes when ctx ends or the returned func is called.
func (a *Aggregator) Watch(ctx context.Context, scope Scope, view View, cursor time.Time) (<-chan []CalendarEvent, func()) {
	ctx, cancel := context.WithCancel(ctx)
	start, end := Range(view, cursor)
	out := make(chan []CalendarEvent, 1)

	topics := []string{events.TopicSchedule}
	if !scope.All {
		topics = append(topics, events.TopicTask)
	}
	var changes <-chan events.Change
	unsubscribe := func() {}
	if a.Bus != nil {
		changes, unsubscribe = a.Bus.Subscribe(64, topics...)
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			unsubscribe()
		})
	}

	emit := func() {
		evs, err := a.ListEvents(ctx, scope, start, end)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("calendar: watch: %v", err)
			}
			return
		}
		select {
		case <-out:
		default:
		}
		out <- evs
	}

	go func() {
		defer close(out)
		defer stop()
		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if !scope.includes(c.TeamID) {
					continue
				}
				emit()
			}
		}
	}()

	return out, stop
}
