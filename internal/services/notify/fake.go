package notify

import "context"

// SentMessage is one notification recorded by the fake transport.
type SentMessage struct {
	Subject string
	Body    string
}

// FakeTransport records every sent notification so tests can inspect
// them. Set SendError to inject a failure on every call.
type FakeTransport struct {
	Messages  []SentMessage
	SendError error
}

// Send appends the message to the recorded list, or returns SendError
// if set.
func (f *FakeTransport) Send(_ context.Context, subject, body string) error {
	if f.SendError != nil {
		return f.SendError
	}
	f.Messages = append(f.Messages, SentMessage{Subject: subject, Body: body})
	return nil
}

// Find returns the first recorded message whose subject matches, plus a
// found bool.
func (f *FakeTransport) Find(subject string) (SentMessage, bool) {
	for _, m := range f.Messages {
		if m.Subject == subject {
			return m, true
		}
	}
	return SentMessage{}, false
}
