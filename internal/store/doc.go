// Package store persists chats, messages and small key/value settings in SQLite.
//
// It is the access contract the relay and the lifecycle manager depend on:
// every write is an independent statement, there is no transaction spanning
// a user turn and its reply.
package store
