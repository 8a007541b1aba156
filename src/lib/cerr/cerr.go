package cerr

import "fmt"

type F = map[string]interface{}

var _ error = ContextualError{}
var _ interface{ Unwrap() error } = ContextualError{}

// Context accumulates fields and an optional cause before
// being finalized into a ContextualError
type Context struct {
	ContextFields F
	Cause         error
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

func Wrap(err error) Context {
	return Context{}.Wrap(err)
}

func Error(message string) ContextualError {
	return Context{}.Error(message)
}

func (c Context) Field(key string, value interface{}) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	newFields := F{}
	for key, value := range c.ContextFields {
		newFields[key] = value
	}
	for key, value := range fields {
		newFields[key] = value
	}

	c.ContextFields = newFields
	return c
}

func (c Context) Wrap(err error) Context {
	c.Cause = err
	return c
}

func (c Context) Error(message string) ContextualError {
	return ContextualError{
		Context: c,
		Message: message,
	}
}

type ContextualError struct {
	Context Context
	Message string
}

func (c ContextualError) Error() string {
	if c.Context.Cause == nil {
		return c.Message
	}

	return fmt.Sprintf("%s: %s", c.Message, c.Context.Cause.Error())
}

func (c ContextualError) Unwrap() error {
	return c.Context.Cause
}
