package events

// Streams holds classified events per category, each in input order.
type Streams map[Kind][]Event

// Classify partitions records into the requested categories, or into all
// five when kinds is empty. Records with an unknown discriminant are omitted.
// Each requested category costs one pass over records.
func Classify(records []Record, kinds ...Kind) Streams {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	streams := make(Streams, len(kinds))
	for _, kind := range kinds {
		if _, done := streams[kind]; done || !kind.Known() {
			continue
		}
		streams[kind] = extract(records, kind)
	}
	return streams
}

func extract(records []Record, kind Kind) []Event {
	out := make([]Event, 0)
	for _, r := range records {
		if Kind(r.Type) != kind {
			continue
		}
		if e, ok := FromRecord(r); ok {
			out = append(out, e)
		}
	}
	return out
}

// Scrolls extracts the scroll category.
func Scrolls(records []Record) []Scroll {
	return typed[Scroll](records, KindScroll)
}

// Clicks extracts the click category.
func Clicks(records []Record) []Clicked {
	return typed[Clicked](records, KindClicked)
}

func Navigations(records []Record) []Navigation {
	return typed[Navigation](records, KindNavigation)
}

func DataChanges(records []Record) []DataChange {
	return typed[DataChange](records, KindDataChange)
}

func UIAdjustments(records []Record) []UIAdjustment {
	return typed[UIAdjustment](records, KindUIAdjustment)
}

func typed[T Event](records []Record, kind Kind) []T {
	out := make([]T, 0)
	for _, e := range extract(records, kind) {
		out = append(out, e.(T))
	}
	return out
}
