package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorCase binds a sentinel error to the HTTP status and message it should
// produce on the wire.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError matches err against the provided cases with errors.Is
// and writes the first match. Unmatched errors fall back to the generic status
// so internal sentinels never leak to clients.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if match, ok := matchErrorCase(err, cases); ok {
		c.JSON(match.Status, NewErrorResponse(c, match.Message))
		return
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

func matchErrorCase(err error, cases []ErrorCase) (ErrorCase, bool) {
	for _, candidate := range cases {
		if candidate.Err != nil && errors.Is(err, candidate.Err) {
			return candidate, true
		}
	}
	return ErrorCase{}, false
}
