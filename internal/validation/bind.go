package validation

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds the query string or form body into `out` and runs
// validation. On failure it writes a 400 response, with any `extra` fields
// merged into the body, and returns an error so the handler can
// short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate, extra ...gin.H) error {
	if err := c.ShouldBind(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, merge(gin.H{
			"error": "invalid_request_body",
			"msg":   err.Error(),
		}, extra))
		return err
	}

	if err := v.Struct(out); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, merge(gin.H{
			"error":  "invalid_request_params",
			"fields": validationErrorsToMap(err),
		}, extra))
		return err
	}
	return nil
}

func merge(body gin.H, extra []gin.H) gin.H {
	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}
	return body
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
