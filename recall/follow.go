package recall

import (
	"encoding/json"

	"github.com/vinayprograms/conductor/bus"
	"github.com/vinayprograms/conductor/results"
)

// Follower streams terminal results from the bus into an archive.
type Follower struct {
	archive *Archive
	sub     bus.Subscription
	done    chan struct{}
}

// Follow subscribes to the terminal result subject and indexes every
// result that arrives. Pass the subject the result publisher uses,
// typically results.DefaultBusPublisherConfig().TerminalSubject.
func Follow(a *Archive, mb bus.MessageBus, subject string) (*Follower, error) {
	sub, err := mb.Subscribe(subject)
	if err != nil {
		return nil, err
	}

	f := &Follower{
		archive: a,
		sub:     sub,
		done:    make(chan struct{}),
	}
	go f.run()
	return f, nil
}

// run consumes terminal results until the subscription ends.
func (f *Follower) run() {
	defer close(f.done)

	for msg := range f.sub.Messages() {
		var r results.Result
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			continue
		}
		// Non-terminal or malformed results are not archive material.
		f.archive.IndexResult(&r)
	}
}

// Stop cancels the subscription and waits for the stream to drain.
func (f *Follower) Stop() error {
	err := f.sub.Unsubscribe()
	<-f.done
	return err
}
