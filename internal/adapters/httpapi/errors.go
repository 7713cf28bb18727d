// Package httpapi exposes the REST surface over gin. Handlers parse, call
// the orchestrator or a service, and map domain errors to statuses; no
// business rule lives here.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/domain"
)

func statusFor(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindConflict, domain.KindCapacity:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func abortWith(c *gin.Context, err error) {
	if kind, ok := domain.KindOf(err); ok {
		c.AbortWithStatusJSON(statusFor(kind), gin.H{"message": err.Error()})
		return
	}
	log.Error().Err(err).Str("module", "adapters.httpapi").
		Str("path", c.FullPath()).Msg("internal error")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}
