package modules

import (
	"strings"

	"lyng/internal/util"
)

// SecurityManager decides which modules and symbols may be imported.
type SecurityManager interface {
	CanImportModule(module string) bool
	CanImportSymbol(module, symbol string) bool
}

type allowAll struct{}

func (allowAll) CanImportModule(string) bool         { return true }
func (allowAll) CanImportSymbol(string, string) bool { return true }

// AllowAll permits every import.
var AllowAll SecurityManager = allowAll{}

// AllowList permits the listed modules and their sub-modules, except for
// denied symbols. An empty module list allows every module.
type AllowList struct {
	modules []string
	denied  map[string]bool
}

func NewAllowList(modules, deniedSymbols []string) *AllowList {
	a := &AllowList{modules: modules, denied: map[string]bool{}}
	for _, s := range deniedSymbols {
		a.denied[s] = true
	}
	return a
}

// SecurityFromConfig returns AllowAll unless the configuration restricts
// imports.
func SecurityFromConfig(cfg util.Configuration) SecurityManager {
	if len(cfg.AllowedModules) == 0 && len(cfg.DeniedSymbols) == 0 {
		return AllowAll
	}
	return NewAllowList(cfg.AllowedModules, cfg.DeniedSymbols)
}

func (a *AllowList) CanImportModule(module string) bool {
	if len(a.modules) == 0 {
		return true
	}
	for _, m := range a.modules {
		if module == m || strings.HasPrefix(module, m+".") {
			return true
		}
	}
	return false
}

func (a *AllowList) CanImportSymbol(module, symbol string) bool {
	return !a.denied[module+"."+symbol]
}
