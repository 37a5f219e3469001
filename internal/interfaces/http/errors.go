package httpinterface

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
)

var (
	errMissingToken = errors.New("missing or invalid admin token")
)

var statusByKind = map[string]int{
	application.KindUnauthorized:     http.StatusForbidden,
	application.KindInvalidRate:      http.StatusBadRequest,
	application.KindInvalidArgument:  http.StatusBadRequest,
	application.KindNotOwner:         http.StatusUnprocessableEntity,
	application.KindAlreadyLocked:    http.StatusConflict,
	application.KindInvalidState:     http.StatusConflict,
	application.KindExpired:          http.StatusGone,
	application.KindTransferRejected: http.StatusBadGateway,
	application.KindFeeNotPaid:       http.StatusPaymentRequired,
	application.KindNotFound:         http.StatusNotFound,
}

// abortWithError writes the error body matching the kind of err. Internal
// errors are logged and hidden to the client.
func abortWithError(c *gin.Context, err error) {
	kind := application.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		log.WithError(err).WithField(
			"request_id", c.GetString(requestIDKey),
		).Error("internal error")

		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
			Code:  application.KindInternal,
			Error: application.ErrServiceUnavailable.Error(),
		})
		return
	}

	c.AbortWithStatusJSON(status, errorResponse{
		Code:  kind,
		Error: err.Error(),
	})
}

func abortWithInvalidArgument(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Code:  application.KindInvalidArgument,
		Error: err.Error(),
	})
}
