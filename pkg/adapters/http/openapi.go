package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/swimlane/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// requestValidator checks requests against the embedded OpenAPI document.
type requestValidator struct {
	router routers.Router
	logger *slog.Logger
}

func newRequestValidator(logger *slog.Logger) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAPI router: %w", err)
	}
	return &requestValidator{router: router, logger: logger}, nil
}

// Middleware rejects requests whose parameters or body do not match the
// document with 400. Routes the document does not describe pass through.
func (v *requestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				v.logger.Warn("OpenAPI route lookup failed", "path", r.URL.Path, "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		if route.Operation.RequestBody != nil && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.logger.Warn("Request does not match OpenAPI document", "operation", route.Operation.OperationID, "err", err)
			writeBadRequest(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// pathParam binds a simple-style path parameter as generated chi servers do.
func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v, nil
}

// watchParam binds the optional ?watch=nodes,cursors list.
func watchParam(r *http.Request) ([]string, error) {
	var watch []string
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &watch); err != nil {
		return nil, fmt.Errorf("invalid format for parameter watch: %w", err)
	}
	return watch, nil
}
