// Package subscription derives a user's effective access tier from the persisted
// billing record and gates paid features on it.
//
// The package is split along the read/write boundary of subscription state:
//
//   - Resolve: pure function mapping a Record (or profile FallbackMetadata) to an Entitlement
//   - Gate: request-time check that allows pro and trialing users, fail-closed on errors
//   - Syncer: the only writer; creates trial records and applies billing provider events
//   - Store / Writer / Profiles: persistence contracts (see pgstore and sqlitestore)
//   - PaddleProvider: Paddle webhook verification and normalization
//
// # Statuses
//
// A record carries one of six statuses: free_trial, pro, active, cancel_scheduled,
// cancelled and expired. pro marks a freshly started paid subscription, active a
// renewed or resumed one. Keeping the two apart means a renewal never looks like a
// new subscription to the reconciliation job.
//
// # Resolution
//
//	ent := subscription.Resolve(subscription.FromRecord(rec), time.Now())
//	if ent.IsTrialing {
//		fmt.Printf("Trial expires in %d days", ent.TrialDaysLeft)
//	}
//
// Users without a record resolve from the bootstrap fields on their profile:
//
//	src := subscription.SourceOf(userID, nil, profile.Fallback)
//	ent := subscription.Resolve(src, now)
//
// Trial days are rounded up, so 36 hours left reads as 2 days. A free_trial whose
// trial end has passed resolves to expired; a missing trial end does not. A
// cancel_scheduled subscription keeps pro access until its end, exclusive.
// Unknown persisted statuses resolve to expired.
//
// # Gating
//
//	gate := subscription.NewGate(store, profiles)
//	r.With(gate.Middleware(currentUserID, "/pricing")).Get("/calendar", calendarHandler)
//
// The middleware stores the entitlement in the request context, see
// EntitlementFromContext. Lookup failures always deny.
//
// # Syncing
//
//	syncer := subscription.NewSyncer(store, subscription.WithWebhookParser(paddleProvider))
//	r.Post("/webhooks/paddle", subscription.WebhookHandler(syncer, "Paddle-Signature", log))
//
// Events that leave the record unchanged are not saved, so redelivered webhooks
// do not move UpdatedAt.
package subscription
