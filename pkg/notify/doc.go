// Package notify sends transactional notifications identified by a
// TemplateID to a single recipient.
//
// Dispatcher is the contract the reconciler depends on. EmailDispatcher
// renders the built-in templ templates and delivers them through an
// email.Sender; WithCircuitBreaker wraps any Dispatcher with a
// sony/gobreaker circuit breaker so a failing transport is not hammered.
//
// A failed Send returns a *DispatchError carrying a Reason. Nothing in this
// package retries: a failed notification is only attempted again if the
// triggering record changes and falls into a later reconciliation window.
package notify
