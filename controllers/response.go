package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pixelpanic/pixel-panic-api/middleware"
	"github.com/pixelpanic/pixel-panic-api/services"
	"github.com/pixelpanic/pixel-panic-api/utils"
)

func init() {
	// report validation failures under the JSON field names clients send
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	}
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.PureJSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFailure(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondError maps err onto the error envelope. Unexpected errors become a
// 500 and are attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	if svcErr, ok := services.AsError(err); ok {
		var details interface{}
		if len(svcErr.Fields) > 0 {
			details = svcErr.Fields
		}
		respondFailure(c, svcErr.Status, svcErr.Code, svcErr.Message, details)
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondFailure(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
		return
	}

	_ = c.Error(err)
	respondFailure(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}

// bindJSON binds the request body into req, writing a 400 on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondFailure(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", validationDetails(err))
		return false
	}
	return true
}

// validationDetails turns binding errors into a field -> message map
func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe.Namespace())] = fieldMessage(fe)
	}
	return fields
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "numeric":
		return "Must contain digits only"
	case "email":
		return "Must be a valid email address"
	case "url":
		return "Must be a valid URL"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("Failed validation: %s", fe.Tag())
}

// parseID reads a positive numeric path parameter, writing a 400 on failure
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondFailure(c, http.StatusBadRequest, "INVALID_ID", fmt.Sprintf("Invalid %s", name), nil)
		return 0, false
	}
	return uint(id), true
}

// principal returns the authenticated caller, writing a 401 when absent
func principal(c *gin.Context) (*middleware.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return nil, false
	}
	return p, true
}

func uploadsUnavailable(c *gin.Context) {
	respondFailure(c, http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "File uploads are not configured", nil)
}
