package service

import (
	"errors"
	"fmt"

	"github.com/emrgen/panorama/internal/store"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrInvalidID is returned when an id is not a valid uuid.
	ErrInvalidID = errors.New("invalid id")
	// ErrPanophotoNotFound is returned when a panophoto does not exist.
	ErrPanophotoNotFound = errors.New("panophoto not found")
	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrLevelNotFound is returned when a level id does not belong to the project.
	ErrLevelNotFound = errors.New("project level not found")
	// ErrLinkNotFound is returned when the source has no link to the target.
	ErrLinkNotFound = errors.New("link not found")
	// ErrSelfLink is returned when a panophoto is linked to itself.
	ErrSelfLink = errors.New("a panophoto cannot be linked to itself")
	// ErrCrossProjectLink is returned when the panophotos belong to different projects.
	ErrCrossProjectLink = errors.New("linked panophotos must belong to the same project")
	// ErrInvalidPosition is returned for a position that is not a finite number.
	ErrInvalidPosition = errors.New("position must be finite")
	// ErrInvalidOffset is returned for a non-finite azimuth offset.
	ErrInvalidOffset = errors.New("azimuth offset must be a finite number")
	// ErrNameRequired is returned when a required name is blank.
	ErrNameRequired = errors.New("name is required")
	// ErrEmptyLevelName is returned when renaming a level to a blank name.
	ErrEmptyLevelName = errors.New("level name cannot be empty")
	// ErrDuplicateLevelName is returned when a level name is already used in the project.
	ErrDuplicateLevelName = errors.New("a level with this name already exists")
	// ErrNotAnImage is returned when an upload is not an image.
	ErrNotAnImage = errors.New("uploaded file must be an image")
	// ErrImageRequired is returned when an upload has no body.
	ErrImageRequired = errors.New("image file is required")
	// ErrNotInProject is returned when a start photo belongs to another project.
	ErrNotInProject = errors.New("panophoto does not belong to this project")
	// ErrNotOnLevel is returned when a level start is not placed on that level.
	ErrNotOnLevel = errors.New("panophoto is not placed on this level")
	// ErrProjectNotEmpty is returned when deleting a project that still owns panophotos.
	ErrProjectNotEmpty = errors.New("cannot delete a project with associated panophotos")
)

// statusError carries a grpc status code while keeping the cause reachable
// through errors.Is.
type statusError struct {
	code codes.Code
	err  error
}

func (e *statusError) Error() string {
	return e.err.Error()
}

func (e *statusError) Unwrap() error {
	return e.err
}

func (e *statusError) GRPCStatus() *status.Status {
	return status.New(e.code, e.err.Error())
}

func withCode(code codes.Code, err error) error {
	if err == nil {
		return nil
	}
	return &statusError{code: code, err: err}
}

func notFound(err error) error {
	return withCode(codes.NotFound, err)
}

func invalidArgument(err error) error {
	return withCode(codes.InvalidArgument, err)
}

func failedPrecondition(err error) error {
	return withCode(codes.FailedPrecondition, err)
}

// storageFailure marks an error raised by the record or blob store.
func storageFailure(err error) error {
	return withCode(codes.Unavailable, err)
}

// fromStore maps a store error, reporting a missing record as missing.
func fromStore(err, missing error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(missing)
	}
	return storageFailure(err)
}

func parseID(id, kind string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, invalidArgument(fmt.Errorf("%w: %s id %q", ErrInvalidID, kind, id))
	}
	return parsed, nil
}
