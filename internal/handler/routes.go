package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Params holds the first value of each required query parameter.
type Params map[string]string

// HandleFunc is called once every required parameter is present.
type HandleFunc func(w http.ResponseWriter, r *http.Request, params Params)

// Route maps a method and path to a handler together with the query
// parameters the handler requires.
type Route struct {
	Method string
	Path   string
	Params []string
	Handle HandleFunc
}

// Pattern returns the ServeMux pattern for the route under basePath.
func (rt Route) Pattern(basePath string) string {
	return rt.Method + " " + strings.TrimSuffix(basePath, "/") + rt.Path
}

// ErrorResponse is the body written when a required parameter is absent.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

var errParamMissing = validation.NewError("validation_param_missing", "required query parameter is not present")

// Register binds routes onto mux under basePath.
func Register(mux *http.ServeMux, basePath string, routes []Route, logger *slog.Logger) {
	for _, rt := range routes {
		mux.Handle(rt.Pattern(basePath), bind(rt, logger))
	}
}

func bind(rt Route, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := requiredParams(r.URL.Query(), rt.Params)
		if err != nil {
			logger.InfoContext(r.Context(), "Validation error",
				slog.String("path", r.URL.Path),
				slog.String("method", r.Method),
				slog.String("error", err.Error()))
			writeBadRequest(w, r, err)
			return
		}

		rt.Handle(w, r, params)
	})
}

// requiredParams checks that every name appears in query. A key with an
// empty value counts as present.
func requiredParams(query url.Values, names []string) (Params, error) {
	errs := validation.Errors{}
	params := make(Params, len(names))

	for _, name := range names {
		values := query[name]
		errs[name] = validation.Validate(values, validation.NotNil.ErrorObject(errParamMissing))
		if len(values) > 0 {
			params[name] = values[0]
		}
	}

	if err := errs.Filter(); err != nil {
		return nil, err
	}

	return params, nil
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Status:  http.StatusBadRequest,
		Error:   http.StatusText(http.StatusBadRequest),
		Message: err.Error(),
		Path:    r.URL.Path,
	})
}
