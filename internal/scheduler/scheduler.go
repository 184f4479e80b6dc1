// Package scheduler produces the dispatch order for water requests. The
// same ordering is used everywhere a request list is shown (pending,
// accepted and delivering views), so the comparator lives in one place.
package scheduler

import (
	"fmt"
	"sort"

	"aquaflow/internal/domain"
)

// Order returns the requests sorted for dispatch: earlier scheduled day
// first, then earlier time of day, then higher urgency. The sort is stable,
// so requests equal on all three keys keep their input order. The input
// slice is not modified.
//
// A request without a scheduled date is a caller bug; Order fails fast
// instead of silently miscomparing.
func Order(requests []domain.WaterRequest) ([]domain.WaterRequest, error) {
	for i := range requests {
		if requests[i].ScheduledAt.IsZero() {
			return nil, fmt.Errorf("request %s has no scheduled date", requests[i].RequestID)
		}
	}

	out := make([]domain.WaterRequest, len(requests))
	copy(out, requests)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i], out[j])
	})
	return out, nil
}

// Less is the three-key lexicographic comparator behind Order.
func Less(a, b domain.WaterRequest) bool {
	ad, bd := dayOf(a), dayOf(b)
	if ad != bd {
		return ad < bd
	}

	at, bt := secondOfDay(a), secondOfDay(b)
	if at != bt {
		return at < bt
	}

	return a.Urgency.Rank() < b.Urgency.Rank()
}

// dayOf collapses the scheduled time to a comparable calendar day.
func dayOf(r domain.WaterRequest) int {
	y, m, d := r.ScheduledAt.UTC().Date()
	return y*10000 + int(m)*100 + d
}

// secondOfDay is the scheduled time of day in nanoseconds since midnight.
func secondOfDay(r domain.WaterRequest) int64 {
	t := r.ScheduledAt.UTC()
	h, min, sec := t.Clock()
	return int64(h)*3600_000_000_000 + int64(min)*60_000_000_000 + int64(sec)*1_000_000_000 + int64(t.Nanosecond())
}
