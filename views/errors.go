package views

import (
	"errors"

	"github.com/mmdatafocus/estate_console/backend"
	"github.com/mmdatafocus/estate_console/decoder"
	"github.com/mmdatafocus/estate_console/models"
)

var ErrNotEditable = errors.New("records of this report cannot be edited")

// UserMessage is the short text shown in the view's alert for a failed fetch or update.
func UserMessage(err error) string {
	var (
		derr *decoder.DecodeError
		nerr *models.NetworkError
		herr *backend.HTTPError
		verr *models.ValidationError
		rerr *models.RejectedError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, models.ErrRecordBusy):
		return models.ErrRecordBusy.Error()
	case errors.As(err, &rerr):
		if rerr.Message != "" {
			return rerr.Message
		}
		return "The server rejected the change."
	case errors.As(err, &derr):
		return "The server sent a response that could not be read."
	case errors.As(err, &nerr):
		return "The server could not be reached. Try again."
	case errors.As(err, &herr):
		if herr.Message != "" {
			return herr.Message
		}
		return "The server rejected the request."
	case errors.Is(err, ErrNotEditable):
		return ErrNotEditable.Error()
	}
	return "Something went wrong. Try again."
}
