package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

const opsPrefix = "/ops"

// runtimeProfiles are the named pprof profiles served under /ops/debug/pprof/.
var runtimeProfiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// SetupOpsRoutes injects internal operations related endpoints. The
// profiler endpoints are only exposed when explicitly enabled.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	opsRoutes := map[string]httprouter.Handle{
		"/configs":     api.GetConfigs,
		"/stats":       api.GetStatistics,
		"/maintenance": api.Maintenance,
		"/debug/vars":  GetMemStats,
		"/debug/gc":    api.RunGC,
		"/debug/fos":   api.FreeOSMemory,
	}
	for path, handle := range opsRoutes {
		router.GET(opsPrefix+path, m.ops(handle))
	}

	if !api.config.ProfilerEnable {
		return router
	}

	profilerRoutes := map[string]httprouter.Handle{
		"/":        api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index)),
		"/profile": api.GetCPUProfile,
		"/trace":   api.GetTraceProfile,
		"/symbol":  api.GetSymbol,
		"/cmdline": api.GetCmdLine,
	}
	for _, name := range runtimeProfiles {
		profilerRoutes["/"+name] = api.OpsHandlerWrapper(pprof.Handler(name))
	}
	for path, handle := range profilerRoutes {
		router.GET(opsPrefix+"/debug/pprof"+path, m.ops(handle))
	}
	return router
}
