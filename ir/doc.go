// Package ir is the format-agnostic intermediate representation shared by
// every reader and writer.
//
// # Core Types
//
//   - Node: an open-kind tree node with an ordered property bag and children
//   - Properties / Value: insertion-ordered, dynamically typed attributes
//   - Document: root content, resources, metadata and optional source info
//   - ResourceMap: binary payloads referenced from nodes by ResourceID
//
// # Fidelity
//
// Every parse and emit returns a Result carrying the warnings collected while
// producing it. Warnings never abort a conversion; hard failures are reported
// separately as *ParseError or *EmitError. A result is high fidelity when it
// carries no Major warning.
//
// Nested conversions thread a Collector and Absorb the sub-result, so warnings
// are appended in the order they were produced.
//
// # Example
//
//	doc := ir.NewDocument()
//	doc.Content = doc.Content.AppendChildren(
//	    ir.New(vocab.Heading).Prop(vocab.Level, 1).Child(ir.Text("Title")),
//	    ir.New(vocab.Paragraph).Child(ir.Text("Hello")),
//	)
package ir
