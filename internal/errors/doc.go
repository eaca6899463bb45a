// Package errors provides coded, structured errors for trackstore.
//
// Every error raised by the state container, the store layer, the config loader
// and the CLI is built from a registered code so callers can match on it and the
// CLI can render it with a hint:
//
//	err := errors.New("T001").
//	    WithDetail(`cannot set "count" through a subscribable state`).
//	    WithSuggestion("Mutate state inside an action").
//	    Wrap(reactive.ErrImmutable)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR T001: State is read-only
//	//
//	//   cannot set "count" through a subscribable state
//	//
//	//   Hint: Mutate state inside an action
//
// # Error Categories
//
//   - state: misuse of the state tree (writes through a read proxy, bad shapes)
//   - action: failures around action dispatch
//   - config: configuration file errors
//   - cli: command line errors
//
// Wrapped sentinels stay visible to errors.Is and errors.As through Unwrap.
package errors
