// Package maperr classifies engine errors for logging and for reporting to
// the connected client.
package maperr

import (
	"fmt"
	"time"

	"github.com/teranos/topicmap/errors"
)

// MapError is an engine error with structured context
type MapError struct {
	Err         error
	Category    Category
	Subcategory string
	UserMessage string
	Context     map[string]interface{}
	Timestamp   time.Time
}

// Error implements the error interface
func (e *MapError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.UserMessage
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *MapError) Unwrap() error {
	return e.Err
}

// New creates a MapError with the specified category
func New(category Category, err error, userMsg string) *MapError {
	return &MapError{
		Err:         err,
		Category:    category,
		UserMessage: userMsg,
		Context:     make(map[string]interface{}),
		Timestamp:   time.Now(),
	}
}

// WithSubcategory adds a subcategory to the error
func (e *MapError) WithSubcategory(sub string) *MapError {
	e.Subcategory = sub
	return e
}

// WithContext adds a context key-value pair for debugging
func (e *MapError) WithContext(key string, value interface{}) *MapError {
	e.Context[key] = value
	return e
}

// ElementNotFound is the retrievable lookup miss raised when the renderer has
// no element for id.
func ElementNotFound(id fmt.Stringer) *MapError {
	return New(CategoryLookup, errors.Wrapf(errors.ErrElementNotFound, "element %s", id), "").
		WithSubcategory(SubcategoryElement).
		WithContext("element_id", id.String())
}

// ElementID returns the offending element id of a lookup miss, if err carries one.
func ElementID(err error) (string, bool) {
	var me *MapError
	if !errors.As(err, &me) {
		return "", false
	}
	id, ok := me.Context["element_id"].(string)
	return id, ok
}

// Classify wraps any error into a MapError, keeping an existing classification.
func Classify(err error) *MapError {
	if err == nil {
		return nil
	}
	var me *MapError
	if errors.As(err, &me) {
		return me
	}
	switch {
	case errors.IsInvariant(err):
		return New(CategoryInvariant, err, "")
	case errors.IsElementNotFound(err):
		return New(CategoryLookup, err, "").WithSubcategory(SubcategoryElement)
	case errors.IsNotFoundError(err):
		return New(CategoryLookup, err, "").WithSubcategory(SubcategoryViewItem)
	case errors.IsInvalidRequestError(err):
		return New(CategoryDirective, err, "").WithSubcategory(SubcategoryDecode)
	}
	return New(CategoryInternal, err, "")
}
