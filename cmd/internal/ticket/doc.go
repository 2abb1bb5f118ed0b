// Package ticket is the process-wide ticket store.
//
// The store is a slot table: a ticket's id is the slot count at creation time, and
// deleting a ticket empties its slot permanently, so ids are dense from 0, stable, and
// never reused. Every operation (create, list, delete) runs under one exclusive mutex.
//
// Tickets are memory-only and reset on restart. List and Delete are not filtered by
// owner: any authenticated caller sees and deletes every ticket.
//
// Events are published after the mutex is released. A caller's own create and delete
// reach subscribers in call order, but events from concurrent callers may arrive in a
// different order than the mutations were applied. Feed consumers order by ticket id
// and treat a delete as final; List is the authoritative view.
package ticket
