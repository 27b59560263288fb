package engine

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// VisibleTo drops private events addressed to someone other than id.
func VisibleTo(events []Event, id string) []Event {
	out := make([]Event, 0, len(events))
	for _, event := range events {
		if event.Recipient == "" || event.Recipient == id {
			out = append(out, event)
		}
	}
	return out
}
