package licence

import "time"

// Evaluate maps a stored grant and the current time to an observable
// status. It is pure: no I/O, no clock reads beyond the now argument.
//
// A nil grant (user never licensed) and a fully decayed timed grant both
// come back Expired; callers that need to tell them apart look at Kind.
func Evaluate(g *Grant, now time.Time) Status {
	if g == nil {
		return Status{Kind: KindNone, Expired: true}
	}
	switch g.Kind {
	case KindUnlimited:
		return Status{Kind: KindUnlimited, Unbounded: true, Active: true}
	case KindTimed:
		active := g.DaysRemaining > 0
		return Status{Kind: KindTimed, Days: g.DaysRemaining, Active: active, Expired: !active}
	default:
		// KindNone, or a kind written by a newer version: report it
		// verbatim but never as licensed.
		return Status{Kind: g.Kind, Expired: true}
	}
}
