// Package errors provides structured, coded errors for the seller console.
//
// Every application-level failure carries a code from the registry (for
// example "SC040") that maps to a category, a short message and a longer
// explanation. The HTTP layer turns categories into status codes and the
// CLI prints the long form with Format.
//
// # Error Categories
//
//   - config: the configuration file or a flag is invalid
//   - validation: user input was rejected before any mutation was issued
//   - notfound: a lead or collection does not exist
//   - conflict: the request does not apply to the current state
//   - confirm: the backend rejected a confirmation
//   - cli: command-line usage and server lifecycle failures
//
// # Usage
//
//	err := errors.New(errors.CodeLeadNotFound).
//	    WithDetail("lead L042 is not in the console").
//	    WithSuggestion("Reload the leads list")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR SC040: Lead not found
//	//
//	//   lead L042 is not in the console
//	//
//	//   Hint: Reload the leads list
package errors
