package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"go.uber.org/zap"
)

const MAX_BODY_BYTES = 1 << 20

type envelope map[string]interface{}

var (
	validate   = validator.New()
	translator ut.Translator
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, translator)
}

// validateStruct. nil or a ErrBadParamInput error listing every failed field in english.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	vv := translateError(err, translator)
	vvString := make([]string, 0, len(vv))
	for _, v := range vv {
		vvString = append(vvString, v.Error())
	}
	return util.WrapErrorf(nil, util.ErrBadParamInput, "validation error: %v", vvString)
}

func translateError(err error, trans ut.Translator) []error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []error{err}
	}
	errs := make([]error, 0, len(validationErrors))
	for _, e := range validationErrors {
		errs = append(errs, errors.New(e.Translate(trans)))
	}
	return errs
}

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// readJSON. decodes exactly one json value, unknown fields are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MAX_BODY_BYTES)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var (
			syntaxError      *json.SyntaxError
			typeError        *json.UnmarshalTypeError
			maxBytesError    *http.MaxBytesError
			invalidUnmarshal *json.InvalidUnmarshalError
		)
		switch {
		case errors.As(err, &syntaxError):
			return util.WrapErrorf(err, util.ErrBadParamInput, "body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return util.WrapErrorf(err, util.ErrBadParamInput, "body contains badly-formed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return util.WrapErrorf(err, util.ErrBadParamInput, "body contains incorrect JSON type for field %q", typeError.Field)
			}
			return util.WrapErrorf(err, util.ErrBadParamInput, "body contains incorrect JSON type (at character %d)", typeError.Offset)
		case errors.Is(err, io.EOF):
			return util.WrapErrorf(err, util.ErrBadParamInput, "body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return util.WrapErrorf(err, util.ErrBadParamInput, "body contains unknown key %s", field)
		case errors.As(err, &maxBytesError):
			return util.WrapErrorf(err, util.ErrBadParamInput, "body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshal):
			panic(err)
		default:
			return util.WrapErrorf(err, util.ErrBadParamInput, "invalid body")
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "body must only contain a single JSON value")
	}
	return nil
}

// responder. error responses shared by the controllers.
type responder struct {
	log *zap.Logger
}

func (rs responder) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}
	if err := writeJSON(w, status, resp, nil); err != nil {
		rs.log.Error("writing error response", zap.String("method", r.Method),
			zap.String("url", r.URL.String()), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (rs responder) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (rs responder) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (rs responder) ConflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (rs responder) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	rs.log.Error("internal server error", zap.String("method", r.Method),
		zap.String("url", r.URL.String()), zap.Error(err))
	rs.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

// getStatusCode. writes the error response matching the code of err.
func (rs responder) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	switch util.ErrorCode(err) {
	case util.ErrBadParamInput:
		rs.BadRequestResponse(w, r, err)
	case util.ErrNotFound:
		rs.NotFoundResponse(w, r, err)
	case util.ErrConflict:
		rs.ConflictResponse(w, r, err)
	default:
		rs.ServerErrorResponse(w, r, err)
	}
}
