package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on the shared echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Handlers fans RegisterRoutes out to several handlers.
type Handlers []Handler

// RegisterRoutes implements Handler.
func (hs Handlers) RegisterRoutes(e *echo.Echo) {
	for _, h := range hs {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
}
