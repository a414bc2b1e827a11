// Package console keeps page-level state consistent with the FactoryOS backend.
//
// Every page of the console is a session object created on Mount and released on
// Unmount. Sessions compose four building blocks: an OptionLoader for filter lists,
// a polling Feed, a Detail fetch keyed off the feed selection, and Actions that move
// user writes through idle, pending and a terminal state.
//
// Responses are ordered by request generation, not by arrival: a feed or detail
// response is applied only when no newer request has been issued since. After
// Unmount returns no session state is written again.
package console
