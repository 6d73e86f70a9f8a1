// Package subscription implements periodic value notifications.
//
// A client subscribes to one sensor address with a cycle time. Every
// subscription receives a uint32 handle from a per-manager counter; the
// first handle is 1 and handles are never reused, even after deletion.
//
// # Scheduling
//
// The Scheduler checks all subscriptions on a fixed tick (100ms by
// default). A subscription is due when at least its cycle time has passed
// since its last delivery attempt. The first delivery happens one cycle
// after creation. Due subscriptions are served in insertion order.
//
// Delivery failures are logged; the subscription stays active and its
// last-sent time still advances, so a broken target is retried one cycle
// later rather than on every tick.
//
// # Lifecycle
//
// Subscriptions do not survive connection loss. The transport removes a
// disconnected target's subscriptions via Manager.RemoveTarget.
package subscription
