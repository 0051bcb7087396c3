package domain

import (
	"errors"
	"fmt"
)

type RouteStage string

const (
	RouteStageDecode   RouteStage = "decode"
	RouteStageValidate RouteStage = "validate"
	RouteStageCall     RouteStage = "call"
)

type RouteError struct {
	Stage RouteStage
	Tool  string
	Err   error
}

func (e *RouteError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Tool, e.Err)
}

func (e *RouteError) Unwrap() error {
	return e.Err
}

func NewRouteError(stage RouteStage, tool string, err error) error {
	if err == nil {
		return nil
	}
	var routeErr *RouteError
	if errors.As(err, &routeErr) {
		return err
	}
	return &RouteError{Stage: stage, Tool: tool, Err: err}
}

func RouteStageFrom(err error) (RouteStage, bool) {
	var routeErr *RouteError
	if errors.As(err, &routeErr) {
		return routeErr.Stage, true
	}
	return "", false
}
