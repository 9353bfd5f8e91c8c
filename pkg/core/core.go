package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/pkg/errorx"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// ErrResponse is the JSON body returned for failed requests.
type ErrResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

// WriteResponse writes err as a coded error response, or data with 200.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		logger.Error("%#+v", err)
		coder := errorx.ParseCoder(err)
		c.JSON(coder.HTTPStatus(), ErrResponse{
			Code:      coder.Code(),
			Message:   coder.String(),
			Reference: coder.Reference(),
		})
		return
	}

	c.JSON(http.StatusOK, data)
}
