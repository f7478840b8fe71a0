package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Error  string                   `json:"error"`
	Fields []domain.ValidationError `json:"fields,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCancellationNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrTravelOptionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientInventory),
		errors.Is(err, domain.ErrCancellationWindowClosed),
		errors.Is(err, domain.ErrTravelOptionDeparted),
		errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		entry := requestLogger(c).WithError(err)
		if errors.Is(err, domain.ErrInventoryCorruption) {
			entry.Error("inventory corruption surfaced to request")
		} else {
			entry.Error("request failed")
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: "internal server error"})
		return
	}

	resp := errorResponse{Error: publicMessage(err)}
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Error = domain.ErrValidation.Error()
		resp.Fields = verrs
	}
	c.AbortWithStatusJSON(status, resp)
}

// publicMessage strips wrapping context that callers should not see.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInsufficientInventory,
		domain.ErrUnauthorized,
		domain.ErrInvalidCredentials,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// bindError turns a gin binding failure into field errors where possible.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(domain.ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out.Add(fe.Field(), fieldMessage(fe))
		}
		return out
	}
	var out domain.ValidationErrors
	out.Add("body", "malformed request: "+err.Error())
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
