package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownDomain is returned when a domain name has no flow definition.
var ErrUnknownDomain = errors.New("unknown domain")

// ErrUnknownStage is returned when a persisted stage is not part of the active flow.
var ErrUnknownStage = errors.New("unknown stage")

// ErrInvalidFlow is returned when a flow table fails validation.
var ErrInvalidFlow = errors.New("invalid flow definition")

// ErrClassifierUnavailable is returned by classifiers that cannot currently answer.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// ErrEmptyUtterance is returned by transports when a message carries no text.
var ErrEmptyUtterance = errors.New("empty utterance")

// ErrInvalidSessionID is returned when a message arrives without a usable session ID.
var ErrInvalidSessionID = errors.New("invalid session id")
