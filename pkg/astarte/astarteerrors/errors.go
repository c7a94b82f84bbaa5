// Package astarteerrors defines the layered error taxonomy shared by every
// component of the device SDK: a small set of sentinel kinds, enriched with
// structured context (interface name, path) instead of ad-hoc strings.
package astarteerrors

import (
	"errors"
	"fmt"
)

// ErrorKind identifies which layer of the SDK produced an error.
type ErrorKind int

const (
	KindInterface ErrorKind = iota
	KindMapping
	KindEndpoint
	KindSchema
	KindStore
	KindTransport
	KindType
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindMapping:
		return "mapping"
	case KindEndpoint:
		return "endpoint"
	case KindSchema:
		return "schema"
	case KindStore:
		return "store"
	case KindTransport:
		return "transport"
	case KindType:
		return "type"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind, for errors.Is matching regardless of context.
var (
	ErrInterface  = errors.New("interface error")
	ErrMapping    = errors.New("mapping error")
	ErrEndpoint   = errors.New("endpoint error")
	ErrSchema     = errors.New("schema error")
	ErrStore      = errors.New("store error")
	ErrTransport  = errors.New("transport error")
	ErrType       = errors.New("type error")
	ErrValidation = errors.New("validation error")

	// More specific sentinels used as Unwrap targets by typed errors below.
	ErrInterfaceNotFound = errors.New("interface not found")
	ErrMappingNotFound   = errors.New("mapping not found")
	ErrDuplicated        = errors.New("duplicated endpoint")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
)

func sentinelFor(k ErrorKind) error {
	switch k {
	case KindInterface:
		return ErrInterface
	case KindMapping:
		return ErrMapping
	case KindEndpoint:
		return ErrEndpoint
	case KindSchema:
		return ErrSchema
	case KindStore:
		return ErrStore
	case KindTransport:
		return ErrTransport
	case KindType:
		return ErrType
	case KindValidation:
		return ErrValidation
	default:
		return errors.New("unknown error")
	}
}

// Error is the root error type. It carries structured context (interface
// name, path) rather than a pre-formatted message where possible.
type Error struct {
	Kind      ErrorKind
	Interface string
	Path      string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	if e.Interface != "" {
		msg += fmt.Sprintf(" on interface %q", e.Interface)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" path %q", e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return sentinelFor(e.Kind)
}

// New builds a root Error for the given kind with a reason.
func New(kind ErrorKind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf builds a root Error with a formatted reason.
func Newf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under the given kind.
func Wrap(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// WithInterface attaches the interface name to a copy of the error.
func (e *Error) WithInterface(name string) *Error {
	cp := *e
	cp.Interface = name
	return &cp
}

// WithPath attaches the path to a copy of the error. Mirrors the original
// SDK's add_path_context helper for enriching I/O-boundary errors.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// NotFoundInterface builds the InterfaceNotFound error kind.
func NotFoundInterface(name string) *Error {
	return &Error{Kind: KindInterface, Interface: name, Err: ErrInterfaceNotFound}
}

// NotFoundMapping builds the MappingNotFound error kind.
func NotFoundMapping(interfaceName, path string) *Error {
	return &Error{Kind: KindMapping, Interface: interfaceName, Path: path, Err: ErrMappingNotFound}
}

// Duplicated builds the Duplicated{endpoint} error kind used by the schema
// validator when two mappings overlap.
func Duplicated(endpoint string) *Error {
	return &Error{Kind: KindSchema, Path: endpoint, Err: ErrDuplicated}
}

// OwnershipMismatch builds the ownership-check failure used by the validator.
func OwnershipMismatch(interfaceName, reason string) *Error {
	return &Error{Kind: KindValidation, Interface: interfaceName, Reason: reason, Err: ErrOwnershipMismatch}
}
