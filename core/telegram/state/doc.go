// Package state keeps per-chat conversation progress for the profile form.
//
// Conversations live only in process memory; a restart forgets every
// in-progress form. Access for a single chat is serialized with ChatLocks.
package state
