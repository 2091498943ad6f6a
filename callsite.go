package scopetrace

import (
	"path/filepath"
	"runtime"
	"strings"
)

// CallSite is the place a scope was opened from.
type CallSite struct {
	Function string
	File     string
	Line     int
}

// Here captures the call site of its caller.
func Here() CallSite {
	return callerSite(2)
}

// callerSite resolves the frame skip levels above it. Files are reduced to their base name and
// functions lose their package path, so "github.com/x/y.(*T).Run" becomes "(*T).Run".
func callerSite(skip int) CallSite {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return CallSite{Function: "unknown", File: "unknown"}
	}
	site := CallSite{
		File:     filepath.Base(file),
		Line:     line,
		Function: "unknown",
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		site.Function = shortFunctionName(fn.Name())
	}
	return site
}

func shortFunctionName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
