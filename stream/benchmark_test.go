package stream

import (
	"testing"
)

func benchmarkEvents(sections int) []Event {
	events := make([]Event, 0, sections*12)
	for range sections {
		events = append(events,
			Start("div"),
			Start("p"), Text("Lorem ipsum "), Start("b"), Text("dolor"), End("b"), Text(" sit amet."), End("p"),
			Start("p"), Text("Second "), Text("paragraph"), End("p"),
			End("div"),
		)
	}
	return events
}

func BenchmarkBuilderWellFormed(b *testing.B) {
	events := benchmarkEvents(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder := NewBuilder(testMap, Options{})
		for _, ev := range events {
			builder.Push(ev)
		}
		_ = builder.Finish()
	}
}

func BenchmarkBuilderRecovery(b *testing.B) {
	events := benchmarkEvents(200)
	for i := 3; i < len(events); i += 17 {
		events[i] = End("i")
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder := NewBuilder(testMap, Options{Recovery: RecoverCloseAncestor, ReportRepairs: true})
		for _, ev := range events {
			builder.Push(ev)
		}
		_ = builder.Finish()
	}
}
