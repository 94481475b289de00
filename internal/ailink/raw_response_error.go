package ailink

import "encoding/json"

// RawResponseError wraps a decode or schema failure with the payload the
// provider returned, so callers can log or display what actually came back.
type RawResponseError struct {
	Err error
	Raw json.RawMessage
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "ailink error"
	}
	return e.Err.Error()
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
