package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JustinBeckwith/flem/pkg/lib"
)

// Rule maps a predicate over the lowercased top-level file names of a
// project to a Runtime.
type Rule struct {
	Name    string
	Runtime lib.Runtime
	Match   func(names []string) bool
}

// Rules are evaluated in order; the first match wins. A Dockerfile always
// wins so a hand-written build file is never overwritten.
var Rules = []Rule{
	{Name: "dockerfile", Runtime: lib.RuntimeCustom, Match: hasFile("dockerfile")},
	{Name: "requirements.txt", Runtime: lib.RuntimePython, Match: hasFile("requirements.txt")},
	{Name: "gemfile", Runtime: lib.RuntimeRuby, Match: hasFile("gemfile")},
	{Name: "go sources", Runtime: lib.RuntimeGo, Match: anyOf(hasFile("go.mod"), hasExt(".go"))},
	{Name: "php sources", Runtime: lib.RuntimePHP, Match: anyOf(hasFile("composer.json"), hasExt(".php"))},
	{Name: "java build", Runtime: lib.RuntimeJava, Match: anyOf(hasFile("pom.xml"), hasFile("build.gradle"), hasExt(".jar"))},
	{Name: "node manifest", Runtime: lib.RuntimeNodejs, Match: anyOf(hasFile("package.json"), hasFile("package-lock.json"), hasFile("yarn.lock"))},
}

// DetectRuntime inspects the top level of dir and applies Rules.
func DetectRuntime(dir string) (lib.Runtime, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return lib.RuntimeCustom, fmt.Errorf("%w: %w", lib.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.ToLower(e.Name()))
	}

	return MatchRules(Rules, names)
}

// MatchRules returns the runtime of the first rule matching names.
func MatchRules(rules []Rule, names []string) (lib.Runtime, error) {
	for _, rule := range rules {
		if rule.Match(names) {
			return rule.Runtime, nil
		}
	}
	return lib.RuntimeCustom, lib.ErrRuntimeNotDetected
}

func hasFile(name string) func([]string) bool {
	return func(names []string) bool {
		for _, n := range names {
			if n == name {
				return true
			}
		}
		return false
	}
}

func hasExt(ext string) func([]string) bool {
	return func(names []string) bool {
		for _, n := range names {
			if filepath.Ext(n) == ext {
				return true
			}
		}
		return false
	}
}

func anyOf(preds ...func([]string) bool) func([]string) bool {
	return func(names []string) bool {
		for _, p := range preds {
			if p(names) {
				return true
			}
		}
		return false
	}
}
