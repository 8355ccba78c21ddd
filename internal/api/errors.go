package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/mapview"
	"github.com/joeblew999/plat-river/internal/service"
)

// httpError maps session errors onto Huma status errors.
func httpError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, service.ErrNotMounted):
		return huma.Error503ServiceUnavailable("Map not mounted")
	case errors.Is(err, mapview.ErrLoopClosed), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("Map unavailable", err)
	default:
		return huma.Error500InternalServerError("Map operation failed", err)
	}
}
