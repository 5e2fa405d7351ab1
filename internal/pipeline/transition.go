package pipeline

// Transition computes the next state for in. It has no side effects. An input
// that does not apply to s returns s unchanged and an EventNone event.
func Transition(s State, in Input) (State, Event) {
	ignored := Event{Kind: EventNone, State: s, Gen: s.Generation}

	switch in := in.(type) {
	case RefreshRequested:
		if s.Phase != Idle {
			return s, ignored
		}
		s.Phase = Fetching
		s.Generation++
		return s, Event{Kind: EventRefreshStarted, State: s, Gen: s.Generation}

	case FetchCompleted:
		if s.Phase != Fetching || in.Gen != s.Generation {
			return s, ignored
		}
		s.Phase = Idle
		switch {
		case in.Err != nil:
			return s, Event{Kind: EventRefreshFailed, State: s, Gen: in.Gen, Err: in.Err}
		case in.Incomplete || in.Record.IsZero():
			return s, Event{Kind: EventRefreshIncomplete, State: s, Gen: in.Gen}
		}
		rec := in.Record
		s.Current = &rec
		return s, Event{Kind: EventRefreshSucceeded, State: s, Gen: in.Gen, SaveErr: in.SaveErr}

	case ApplyRequested:
		if s.Phase != Idle || !s.HasRecord() {
			return s, ignored
		}
		s.Phase = Applying
		s.Generation++
		return s, Event{Kind: EventApplyStarted, State: s, Gen: s.Generation}

	case ApplyCompleted:
		if s.Phase != Applying || in.Gen != s.Generation {
			return s, ignored
		}
		s.Phase = Idle
		if in.Err != nil {
			return s, Event{Kind: EventApplyFailed, State: s, Gen: in.Gen, Err: in.Err}
		}
		return s, Event{Kind: EventApplySucceeded, State: s, Gen: in.Gen}

	case CacheReplaced:
		if s.Phase != Idle || in.Record.IsZero() {
			return s, ignored
		}
		if s.Current != nil && s.Current.Equal(in.Record) {
			return s, ignored
		}
		rec := in.Record
		s.Current = &rec
		return s, Event{Kind: EventCacheReplaced, State: s, Gen: s.Generation}
	}
	return s, ignored
}
