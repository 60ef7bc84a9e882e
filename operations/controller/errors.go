package controller

import (
	"errors"

	"github.com/joomcode/errorx"
)

var (
	ComposeErrors = errorx.NewNamespace("compose")

	// ComposeError is the base of every rejection; the subtypes below narrow
	// down where the problem lives.
	ComposeError    = ComposeErrors.NewType("compose")
	ArgumentError   = ComposeError.NewSubtype("argument")
	ValidationError = ComposeError.NewSubtype("validation")
	ServiceError    = ComposeError.NewSubtype("service")

	PropertyService = errorx.RegisterPrintableProperty("service")
	PropertyField   = errorx.RegisterPrintableProperty("field")
	PropertyLevel   = errorx.RegisterProperty("level")
)

// Severity levels shared with the parser's diagnostic stream.
const (
	LevelPanic = "panic"
	LevelFatal = "fatal"
	LevelError = "error"
	LevelWarn  = "warn"
	LevelInfo  = "info"
	LevelDebug = "debug"
)

func newServiceError(service, format string, args ...any) *errorx.Error {
	return ServiceError.New(format, args...).WithProperty(PropertyService, service)
}

func newServiceFieldError(service, field, format string, args ...any) *errorx.Error {
	return newServiceError(service, format, args...).WithProperty(PropertyField, field)
}

func newValidationFieldError(field, format string, args ...any) *errorx.Error {
	return ValidationError.New(format, args...).WithProperty(PropertyField, field)
}

// ServiceName returns the service a ServiceError was raised for.
func ServiceName(err error) string {
	v, ok := property(err, PropertyService)
	if !ok {
		return ""
	}
	name, _ := v.(string)
	return name
}

// Field returns the offending field name, when the rejection names one.
func Field(err error) string {
	v, ok := property(err, PropertyField)
	if !ok {
		return ""
	}
	field, _ := v.(string)
	return field
}

// Level returns the severity attached to err, "error" when none was attached.
func Level(err error) string {
	v, ok := property(err, PropertyLevel)
	if !ok {
		return LevelError
	}
	level, _ := v.(string)
	if level == "" {
		return LevelError
	}
	return level
}

// Name maps err onto the names used in structured error responses.
func Name(err error) string {
	switch {
	case errorx.IsOfType(err, ArgumentError):
		return "ArgumentError"
	case errorx.IsOfType(err, ValidationError):
		return "ValidationError"
	case errorx.IsOfType(err, ServiceError):
		return "ServiceError"
	default:
		return "ComposeError"
	}
}

// Message returns the human readable part of err without type prefixes.
func Message(err error) string {
	var xerr *errorx.Error
	if errors.As(err, &xerr) {
		return xerr.Message()
	}
	return err.Error()
}

// property looks up key on the first errorx error in err's chain.
func property(err error, key errorx.Property) (any, bool) {
	var xerr *errorx.Error
	if !errors.As(err, &xerr) {
		return nil, false
	}
	return xerr.Property(key)
}
