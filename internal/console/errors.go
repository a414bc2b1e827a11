package console

import (
	"errors"

	"github.com/factoryos/console-sync/internal/repo"
	"github.com/factoryos/console-sync/internal/utils"
)

var (
	// ErrInvalidInput marks a precondition failure caught before dispatch.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBusy is returned when an action is already pending.
	ErrBusy = errors.New("action already pending")
	// ErrDisposed is returned once the owning page has been unmounted.
	ErrDisposed = errors.New("page unmounted")
	// ErrNotFound is returned when a referenced item is not in the current state.
	ErrNotFound = errors.New("not found")
)

// userMessage returns the text shown in an inline banner for err.
func userMessage(err error) string {
	var reqErr *repo.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message()
	}
	return utils.UserMessage(err)
}
