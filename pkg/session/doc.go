/*
Package session serializes access to per-conversation dialog state.

A Manager pairs a ports.StateStore with an in-process lock per session and,
optionally, a ports.DistributedLocker so several replicas can share one store.
Update is the unit of work for a conversational turn: load or create, mutate,
save, all under the session lock.
*/
package session
