package http

import "errors"

var (
	errMissingActor      = errors.New("missing " + HeaderActorID + " header")
	errInvalidCanApprove = errors.New("invalid " + HeaderActorCanApprove + " header")
)
