package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Route is one endpoint of a Module
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Module is a set of routes sharing a path prefix and middleware
type Module struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

func (m Module) mount(rg *gin.RouterGroup) []string {
	group := rg.Group(m.Prefix, m.Middleware...)
	mounted := make([]string, 0, len(m.Routes))
	for _, r := range m.Routes {
		group.Handle(r.Method, r.Path, r.Handler)
		mounted = append(mounted, r.Method+" "+joinPath(group.BasePath(), r.Path))
	}
	return mounted
}

// API mounts modules under /api/{version} behind shared middleware
type API struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	modules    []Module
}

// NewAPI creates an API for version, "v1" when empty
func NewAPI(engine *gin.Engine, version string) *API {
	if version == "" {
		version = "v1"
	}
	return &API{engine: engine, version: version}
}

// Use adds middleware that runs for every versioned route only
func (a *API) Use(middleware ...gin.HandlerFunc) *API {
	a.middleware = append(a.middleware, middleware...)
	return a
}

// Mount queues modules for Build
func (a *API) Mount(modules ...Module) *API {
	a.modules = append(a.modules, modules...)
	return a
}

// Build registers every mounted module and returns the routes as "METHOD /path"
func (a *API) Build() []string {
	api := a.engine.Group("/api/"+a.version, a.middleware...)
	var routes []string
	for _, m := range a.modules {
		routes = append(routes, m.mount(api)...)
	}
	return routes
}

func joinPath(base, rel string) string {
	if rel == "" || rel == "/" {
		return base
	}
	return path.Join(base, rel)
}

// get and post keep route tables short
func get(p string, h gin.HandlerFunc) Route  { return Route{Method: http.MethodGet, Path: p, Handler: h} }
func post(p string, h gin.HandlerFunc) Route { return Route{Method: http.MethodPost, Path: p, Handler: h} }
